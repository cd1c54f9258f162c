package courses

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	NoInstructorLabel = "<No Instructor>"
	NoMeetingsLabel   = "-------------"

	headerIcon = "🗓"

	fullSectionWidth    = 9
	compactSectionWidth = 5
	minSeatsWidth       = 7
	maxCompactName      = 19
)

// Table is rendered output before pagination. Header goes above the first
// code block; Columns and Rows go inside. Every row ends in a newline.
type Table struct {
	Header  string
	Columns string
	Rows    []string
}

func Render(res *Result) Table {
	if res.Mode == DisplayCompact {
		return RenderCompact(res)
	}
	return RenderFull(res)
}

func RenderFull(res *Result) Table {
	secs := res.Sections
	instrW := len(NoInstructorLabel) + 2
	seatsW := minSeatsWidth
	// Methods shorter than the "TYPE" header would otherwise shift the header.
	typeW := len("TYPE") + 2
	for _, s := range secs {
		instrW = max(instrW, width(displayInstructor(s.Instructor))+2)
		seatsW = max(seatsW, width(seats(s))+2)
		typeW = max(typeW, width(s.Method)+2)
	}

	t := Table{
		Header: fmt.Sprintf("%s %s - %s (%s)\n", headerIcon, res.Semester, res.Course, strings.Join(titles(secs), " / ")),
		Columns: pad("SECTION", fullSectionWidth) + pad("INSTRUCTOR", instrW) +
			pad("SEATS", seatsW) + pad("TYPE", typeW) + "MEETING TIMES\n",
	}
	for _, s := range secs {
		t.Rows = append(t.Rows, pad(s.ID, fullSectionWidth)+
			pad(displayInstructor(s.Instructor), instrW)+
			pad(seats(s), seatsW)+
			pad(s.Method, typeW)+
			meetings(s.Meetings)+"\n")
	}
	return t
}

func RenderCompact(res *Result) Table {
	secs := res.Sections
	instrW := len(NoInstructorLabel) + 1
	for _, s := range secs {
		instrW = max(instrW, width(squeezeName(s.Instructor))+1)
	}

	t := Table{
		Header:  fmt.Sprintf("%s %s - %s\n(%s)\n", headerIcon, res.Semester, res.Course, compactTitle(secs)),
		Columns: pad("SEC.", compactSectionWidth) + pad("INSTRUCTOR", instrW) + "SEATS\n",
	}
	for _, s := range secs {
		t.Rows = append(t.Rows, pad(s.ID, compactSectionWidth)+pad(squeezeName(s.Instructor), instrW)+seats(s)+"\n")
	}
	return t
}

func displayInstructor(name string) string {
	if name == NoInstructor {
		return NoInstructorLabel
	}
	return name
}

// squeezeName turns "Last, First" into "Last, F.", at most 19 characters.
func squeezeName(name string) string {
	name = displayInstructor(name)
	if name == NoInstructorLabel {
		return name
	}
	last, first, ok := strings.Cut(name, ", ")
	if ok && first != "" {
		r, _ := utf8.DecodeRuneInString(first)
		name = last + ", " + string(r) + "."
	}
	return truncate(name, maxCompactName)
}

func seats(s Section) string { return fmt.Sprintf("%02d/%02d", s.Enrolled, s.Capacity) }

func meetings(ms []Meeting) string {
	if len(ms) == 0 {
		return NoMeetingsLabel
	}
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, fmt.Sprintf("%s: %s - %s", m.Days, clock12(m.Start), clock12(m.End)))
	}
	return strings.Join(parts, ", ")
}

// clock12 converts "HHMM" to "hh:mm AM". Unparseable input is returned unchanged.
func clock12(hhmm string) string {
	t, err := time.Parse("1504", strings.TrimSpace(hhmm))
	if err != nil {
		return hhmm
	}
	return t.Format("03:04 PM")
}

// titles returns distinct titles in first-seen order.
func titles(secs []Section) []string {
	seen := make(map[string]struct{}, 2)
	var out []string
	for _, s := range secs {
		if _, ok := seen[s.Title]; ok {
			continue
		}
		seen[s.Title] = struct{}{}
		out = append(out, s.Title)
	}
	return out
}

// compactTitle picks the first title not marked honors, falling back to the first title.
func compactTitle(secs []Section) string {
	all := titles(secs)
	for _, t := range all {
		if !strings.Contains(strings.ToLower(t), "honors") {
			return t
		}
	}
	if len(all) > 0 {
		return all[0]
	}
	return ""
}

func width(s string) int { return utf8.RuneCountInString(s) }

func pad(s string, w int) string {
	if n := width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

func truncate(s string, n int) string {
	if width(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
