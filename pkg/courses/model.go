package courses

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// NoInstructor is the feed's INSTRUCTOR value for unassigned sections.
const NoInstructor = ", "

type SemesterDescriptor struct {
	Description string
	Code        string
}

// Discovery is the term-less payload: the semester list and the current code.
type Discovery struct {
	CurrentCode string
	// Semesters is nil when the payload has no semester list.
	Semesters []SemesterDescriptor
}

type Dataset struct {
	Subjects []Subject
}

type Subject struct {
	Code    string
	Courses []Course
}

type Course struct {
	Number   string // full course code, e.g. "CS100"
	Sections []Section
}

type Section struct {
	ID         string
	Title      string
	Instructor string
	Enrolled   int
	Capacity   int
	Method     string
	Meetings   []Meeting
}

// Meeting times are 24-hour "HHMM".
type Meeting struct {
	Days  string
	Start string
	End   string
}

func (m Meeting) empty() bool { return m.Days == "" && m.Start == "" && m.End == "" }

// oneOrMany decodes a JSON object or an array of objects into a slice.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*o = nil
		return nil
	case b[0] == '[':
		var xs []T
		if err := json.Unmarshal(b, &xs); err != nil {
			return err
		}
		if xs == nil {
			xs = []T{}
		}
		*o = xs
		return nil
	default:
		var x T
		if err := json.Unmarshal(b, &x); err != nil {
			return err
		}
		*o = []T{x}
		return nil
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) int() int {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return 0
	}
	return n
}

type rawDiscovery struct {
	CT flexString `json:"ct"`
	TS *struct {
		WSRESPONSE *struct {
			SOAXREF *oneOrMany[struct {
				Description flexString `json:"DESCRIPTION"`
				EdiValue    flexString `json:"EDIVALUE"`
			}] `json:"SOAXREF"`
		} `json:"WSRESPONSE"`
	} `json:"ts"`
}

type rawDataset struct {
	WS *struct {
		WSRESPONSE *struct {
			Subject oneOrMany[rawSubject] `json:"Subject"`
		} `json:"WSRESPONSE"`
	} `json:"ws"`
}

type rawSubject struct {
	Code    flexString           `json:"SUBJ"`
	Courses oneOrMany[rawCourse] `json:"Course"`
}

type rawCourse struct {
	Number   flexString            `json:"COURSE"`
	Sections oneOrMany[rawSection] `json:"Section"`
}

type rawSection struct {
	ID         flexString            `json:"SECTION"`
	Title      flexString            `json:"TITLE"`
	Instructor flexString            `json:"INSTRUCTOR"`
	Enrolled   flexString            `json:"ENROLLED"`
	Capacity   flexString            `json:"CAPACITY"`
	Method     flexString            `json:"INSTRUCTIONMETHOD"`
	Schedule   oneOrMany[rawMeeting] `json:"Schedule"`
}

type rawMeeting struct {
	Days  flexString `json:"MTG_DAYS"`
	Start flexString `json:"START_TIME"`
	End   flexString `json:"END_TIME"`
}

// ParseDiscovery decodes an unwrapped discovery payload.
func ParseDiscovery(b []byte) (*Discovery, error) {
	var raw rawDiscovery
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &MalformedPayloadError{Reason: "decode discovery", Err: err}
	}
	d := &Discovery{CurrentCode: strings.TrimSpace(string(raw.CT))}
	if raw.TS == nil || raw.TS.WSRESPONSE == nil || raw.TS.WSRESPONSE.SOAXREF == nil {
		return d, nil
	}
	d.Semesters = make([]SemesterDescriptor, 0, len(*raw.TS.WSRESPONSE.SOAXREF))
	for _, s := range *raw.TS.WSRESPONSE.SOAXREF {
		d.Semesters = append(d.Semesters, SemesterDescriptor{Description: string(s.Description), Code: string(s.EdiValue)})
	}
	return d, nil
}

// ParseDataset decodes an unwrapped per-semester payload.
func ParseDataset(b []byte) (*Dataset, error) {
	var raw rawDataset
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &MalformedPayloadError{Reason: "decode semester", Err: err}
	}
	if raw.WS == nil || raw.WS.WSRESPONSE == nil {
		return nil, &MalformedPayloadError{Reason: "missing ws.WSRESPONSE"}
	}

	ds := &Dataset{Subjects: make([]Subject, 0, len(raw.WS.WSRESPONSE.Subject))}
	for _, rs := range raw.WS.WSRESPONSE.Subject {
		subj := Subject{Code: string(rs.Code), Courses: make([]Course, 0, len(rs.Courses))}
		for _, rc := range rs.Courses {
			c := Course{Number: string(rc.Number), Sections: make([]Section, 0, len(rc.Sections))}
			for _, sec := range rc.Sections {
				c.Sections = append(c.Sections, sec.section())
			}
			subj.Courses = append(subj.Courses, c)
		}
		ds.Subjects = append(ds.Subjects, subj)
	}
	return ds, nil
}

func (r rawSection) section() Section {
	s := Section{
		ID:         string(r.ID),
		Title:      string(r.Title),
		Instructor: string(r.Instructor),
		Enrolled:   r.Enrolled.int(),
		Capacity:   r.Capacity.int(),
		Method:     string(r.Method),
	}
	for _, m := range r.Schedule {
		mt := Meeting{Days: string(m.Days), Start: string(m.Start), End: string(m.End)}
		if !mt.empty() {
			s.Meetings = append(s.Meetings, mt)
		}
	}
	return s
}
