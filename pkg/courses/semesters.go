package courses

import (
	"strings"
	"unicode"
)

// DefaultYears is the semester year whitelist used when none is configured.
var DefaultYears = []string{"2019", "2020"}

// Index maps semester descriptions to codes, in feed order. It is immutable
// once built.
type Index struct {
	order  []string
	codes  map[string]string
	byLow  map[string]string
	byCode map[string]string
}

// BuildIndex keeps the semesters whose description year (see descriptionYear)
// is whitelisted.
func BuildIndex(d *Discovery, years []string) (*Index, error) {
	if d == nil || d.Semesters == nil {
		return nil, &MalformedPayloadError{Reason: "missing ts.WSRESPONSE.SOAXREF"}
	}
	allowed := make(map[string]struct{}, len(years))
	for _, y := range years {
		allowed[strings.TrimSpace(y)] = struct{}{}
	}

	idx := &Index{
		codes:  make(map[string]string),
		byLow:  make(map[string]string),
		byCode: make(map[string]string),
	}
	for _, s := range d.Semesters {
		if _, ok := allowed[descriptionYear(s.Description)]; !ok {
			continue
		}
		if _, seen := idx.codes[s.Description]; !seen {
			idx.order = append(idx.order, s.Description)
		}
		idx.codes[s.Description] = s.Code
		if _, ok := idx.byLow[strings.ToLower(s.Description)]; !ok {
			idx.byLow[strings.ToLower(s.Description)] = s.Description
		}
		if _, ok := idx.byCode[s.Code]; !ok {
			idx.byCode[s.Code] = s.Description
		}
	}
	return idx, nil
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.order)
}

// Descriptions returns the semester names in feed order.
func (x *Index) Descriptions() []string {
	if x == nil {
		return nil
	}
	return append([]string(nil), x.order...)
}

func (x *Index) Code(description string) (string, bool) {
	if x == nil {
		return "", false
	}
	c, ok := x.codes[description]
	return c, ok
}

// Match finds a description case-insensitively.
func (x *Index) Match(name string) (string, bool) {
	if x == nil {
		return "", false
	}
	d, ok := x.byLow[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Describe reverse-looks up a code. Unknown codes are returned as is.
func (x *Index) Describe(code string) string {
	if x != nil {
		if d, ok := x.byCode[code]; ok {
			return d
		}
	}
	return code
}

// descriptionYear returns the leading four digits of a description such as
// "2020 Fall", or else the first four-digit word, as in "Fall 2020".
func descriptionYear(desc string) string {
	if len(desc) >= 4 && isDigits(desc[:4]) {
		return desc[:4]
	}
	for _, f := range strings.FieldsFunc(desc, func(r rune) bool { return !unicode.IsDigit(r) }) {
		if len(f) == 4 {
			return f
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
