package courses

import (
	"fmt"
	"strings"
)

type DisplayMode int

const (
	DisplayFull DisplayMode = iota + 1
	DisplayCompact
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayFull:
		return "full"
	case DisplayCompact:
		return "compact"
	default:
		return "unknown"
	}
}

// ParseDisplayMode accepts "full", "compact" and "less" in any case.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return DisplayFull, nil
	case "compact", "less":
		return DisplayCompact, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrInvalidDisplayMode, s)
	}
}

type Query struct {
	Mode     string
	Course   string
	Semester string // empty means the current semester
}

type Result struct {
	Mode     DisplayMode
	Semester string
	Course   string // upper-cased
	Sections []Section
}

// Resolver answers queries from the latest cache snapshot.
type Resolver struct {
	cache *Cache
}

func NewResolver(cache *Cache) *Resolver { return &Resolver{cache: cache} }

func (r *Resolver) Resolve(q Query) (*Result, error) {
	mode, err := ParseDisplayMode(q.Mode)
	if err != nil {
		return nil, err
	}
	snap := r.cache.Load()
	if snap == nil {
		return nil, ErrCacheEmpty
	}

	semester := snap.Current
	if name := strings.TrimSpace(q.Semester); name != "" {
		d, ok := snap.Index.Match(name)
		if !ok {
			return nil, ErrUnknownSemester
		}
		semester = d
	}
	ds, ok := snap.Dataset(semester)
	if !ok {
		return nil, ErrSemesterDataUnavailable
	}

	course := strings.ToUpper(strings.TrimSpace(q.Course))
	sections := FindSections(ds, course)
	if len(sections) == 0 {
		return nil, ErrCourseNotFound
	}
	return &Result{Mode: mode, Semester: semester, Course: course, Sections: sections}, nil
}

// FindSections collects the sections of course (upper-case, e.g. "CS100")
// across every subject whose code equals the course minus its trailing three
// characters.
func FindSections(ds *Dataset, course string) []Section {
	if ds == nil || len(course) < 3 {
		return nil
	}
	prefix := course[:len(course)-3]

	var out []Section
	for _, subj := range ds.Subjects {
		if subj.Code != prefix {
			continue
		}
		for _, c := range subj.Courses {
			if c.Number == course {
				out = append(out, c.Sections...)
			}
		}
	}
	return out
}
