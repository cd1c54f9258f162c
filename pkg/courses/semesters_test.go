package courses

import (
	"errors"
	"testing"
)

func TestBuildIndexFiltersYears(t *testing.T) {
	t.Parallel()
	d, err := ParseDiscovery([]byte(discoveryJSON))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := BuildIndex(d, DefaultYears)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	got := idx.Descriptions()
	if len(got) != 2 || got[0] != "2020 Fall" || got[1] != "2020 Spring" {
		t.Fatalf("descriptions = %v", got)
	}
	if _, ok := idx.Code("2018 Fall"); ok {
		t.Fatal("2018 Fall should be filtered out")
	}
}

func TestBuildIndexMissingPath(t *testing.T) {
	t.Parallel()
	_, err := BuildIndex(&Discovery{CurrentCode: "1"}, DefaultYears)
	var mp *MalformedPayloadError
	if !errors.As(err, &mp) {
		t.Fatalf("want MalformedPayloadError, got %v", err)
	}
}

func TestIndexLookups(t *testing.T) {
	t.Parallel()
	idx, err := BuildIndex(&Discovery{Semesters: []SemesterDescriptor{{Description: "Fall 2020", Code: "1"}}}, DefaultYears)
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := idx.Match("fall 2020"); !ok || d != "Fall 2020" {
		t.Fatalf("Match = %q, %v", d, ok)
	}
	if _, ok := idx.Match("spring 2020"); ok {
		t.Fatal("unexpected match")
	}
	if got := idx.Describe("1"); got != "Fall 2020" {
		t.Fatalf("Describe(1) = %q", got)
	}
	if got := idx.Describe("9"); got != "9" {
		t.Fatalf("Describe(9) = %q", got)
	}
	var nilIdx *Index
	if nilIdx.Len() != 0 || nilIdx.Describe("x") != "x" {
		t.Fatal("nil index should be empty")
	}
}

func TestDescriptionYear(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"2020 Fall":       "2020",
		"Fall 2020":       "2020",
		"2019 Summer II":  "2019",
		"Winter Session":  "",
		"20 Fall":         "",
		"Spring 2021 (A)": "2021",
		"":                "",
	}
	for in, want := range tests {
		if got := descriptionYear(in); got != want {
			t.Fatalf("descriptionYear(%q) = %q, want %q", in, got, want)
		}
	}
}
