package router

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenizeCommandLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "/course full CS100", want: []string{"/course", "full", "CS100"}},
		{in: `/course full CS100 "Fall 2020"`, want: []string{"/course", "full", "CS100", "Fall 2020"}},
		{in: `/x 'a b'  c\ d`, want: []string{"/x", "a b", "c d"}},
	}
	for _, tc := range tests {
		got := tokenizeCommandLine(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("tokenizeCommandLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	pos, flags, bools := parseFlags([]string{"full", "--sem=Fall 2020", "-v", "CS100", "--dry", "-ab"})
	if !reflect.DeepEqual(pos, []string{"full"}) {
		t.Fatalf("pos = %q", pos)
	}
	if flags["sem"] != "Fall 2020" || flags["v"] != "CS100" {
		t.Fatalf("flags = %v", flags)
	}
	if !bools["dry"] || !bools["a"] || !bools["b"] {
		t.Fatalf("bools = %v", bools)
	}
}

func TestNewReqIDUnique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newReqID()
		if seen[id] || !strings.Contains(id, "-") {
			t.Fatalf("bad or duplicate id %q", id)
		}
		seen[id] = true
	}
}
