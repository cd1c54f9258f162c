package courses

import (
	"fmt"
	"strings"
	"testing"
)

func resolveFall(t *testing.T, mode, course string) *Result {
	t.Helper()
	c := loadedCache(t, discoveryJSON, map[string]string{"2020 Fall": fallJSON})
	res, err := NewResolver(c).Resolve(Query{Mode: mode, Course: course})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return res
}

func TestRenderFullNoInstructorRow(t *testing.T) {
	t.Parallel()
	tbl := Render(resolveFall(t, "full", "CS100"))

	if tbl.Header != "🗓 2020 Fall - CS100 (ROADMAP TO COMPUTING)\n" {
		t.Fatalf("header = %q", tbl.Header)
	}
	if want := "SECTION  INSTRUCTOR       SEATS  TYPE  MEETING TIMES\n"; tbl.Columns != want {
		t.Fatalf("columns = %q, want %q", tbl.Columns, want)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("rows = %d", len(tbl.Rows))
	}
	if want := "001      <No Instructor>  05/30  LEC   -------------\n"; tbl.Rows[0] != want {
		t.Fatalf("row = %q, want %q", tbl.Rows[0], want)
	}
}

func TestRenderFullMeetingsAndAlignment(t *testing.T) {
	t.Parallel()
	tbl := RenderFull(resolveFall(t, "full", "CS114"))

	if !strings.Contains(tbl.Header, "(INTRO TO CS II / HONORS INTRO TO CS II)") {
		t.Fatalf("header = %q", tbl.Header)
	}
	if !strings.HasSuffix(tbl.Rows[0], "M: 10:00 AM - 11:20 AM, W: 02:30 PM - 03:50 PM\n") {
		t.Fatalf("row 0 = %q", tbl.Rows[0])
	}
	if !strings.HasSuffix(tbl.Rows[1], "R: 08:30 AM - 09:50 AM\n") {
		t.Fatalf("row 1 = %q", tbl.Rows[1])
	}

	col := strings.Index(tbl.Columns, "MEETING TIMES")
	for _, row := range tbl.Rows {
		prefix := row[:col]
		if !strings.HasSuffix(prefix, " ") || strings.HasPrefix(row[col:], " ") {
			t.Fatalf("row not aligned to meeting column %d: %q", col, row)
		}
	}
}

func TestRenderFullTypeColumnWidth(t *testing.T) {
	t.Parallel()
	tests := []struct {
		methods []string
		want    int
	}{
		{[]string{"OL"}, 6},
		{[]string{"LEC"}, 6},
		{[]string{"LEC", "HYBRID"}, 8},
	}
	for _, tt := range tests {
		res := &Result{Mode: DisplayFull, Semester: "2020 Fall", Course: "CS100"}
		for i, m := range tt.methods {
			res.Sections = append(res.Sections, Section{ID: fmt.Sprintf("%03d", i+1), Title: "T", Instructor: "Lee, Ann", Enrolled: 1, Capacity: 9, Method: m})
		}
		tbl := RenderFull(res)

		start := strings.Index(tbl.Columns, "TYPE")
		if got := strings.Index(tbl.Columns, "MEETING TIMES") - start; got != tt.want {
			t.Fatalf("%v: type column width = %d, want %d", tt.methods, got, tt.want)
		}
		for _, row := range tbl.Rows {
			if cell := row[start : start+tt.want]; strings.TrimSpace(cell) == "" || !strings.HasSuffix(cell, " ") {
				t.Fatalf("%v: type cell = %q", tt.methods, cell)
			}
		}
	}
}

func TestRenderCompact(t *testing.T) {
	t.Parallel()
	tbl := Render(resolveFall(t, "less", "CS114"))

	if tbl.Header != "🗓 2020 Fall - CS114\n(INTRO TO CS II)\n" {
		t.Fatalf("header = %q", tbl.Header)
	}
	if want := "SEC. INSTRUCTOR      SEATS\n"; tbl.Columns != want {
		t.Fatalf("columns = %q, want %q", tbl.Columns, want)
	}
	want := []string{
		"002  Smith, J.       12/40\n",
		"H01  Doe, J.         09/20\n",
	}
	for i, w := range want {
		if tbl.Rows[i] != w {
			t.Fatalf("row %d = %q, want %q", i, tbl.Rows[i], w)
		}
	}
}

func TestSqueezeName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Smith, John":                  "Smith, J.",
		", ":                           NoInstructorLabel,
		"Vandenberghe-Castellano, Bob": "Vandenberghe-Castel",
		"Staff":                        "Staff",
		"Ødegård, Åse":                 "Ødegård, Å.",
	}
	for in, want := range tests {
		if got := squeezeName(in); got != want {
			t.Fatalf("squeezeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClock12(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"0000": "12:00 AM",
		"0830": "08:30 AM",
		"1200": "12:00 PM",
		"1350": "01:50 PM",
		"TBA":  "TBA",
	}
	for in, want := range tests {
		if got := clock12(in); got != want {
			t.Fatalf("clock12(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompactTitleAllHonors(t *testing.T) {
	t.Parallel()
	got := compactTitle([]Section{{Title: "Honors A"}, {Title: "HONORS B"}})
	if got != "Honors A" {
		t.Fatalf("compactTitle = %q", got)
	}
}
