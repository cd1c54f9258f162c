package courses

import (
	"errors"
	"reflect"
	"testing"
)

func TestSectionShapesNormalize(t *testing.T) {
	t.Parallel()
	const sec = `{"SECTION": "001", "TITLE": "T", "INSTRUCTOR": "A, B", "ENROLLED": "1", "CAPACITY": "2",
		"INSTRUCTIONMETHOD": "LEC", "Schedule": {"MTG_DAYS": "F", "START_TIME": "0900", "END_TIME": "0950"}}`
	single := mustDataset(t, `{"ws":{"WSRESPONSE":{"Subject":[{"SUBJ":"CS","Course":[{"COURSE":"CS100","Section":`+sec+`}]}]}}}`)
	list := mustDataset(t, `{"ws":{"WSRESPONSE":{"Subject":[{"SUBJ":"CS","Course":[{"COURSE":"CS100","Section":[`+sec+`]}]}]}}}`)

	a, b := FindSections(single, "CS100"), FindSections(list, "CS100")
	if len(a) != 1 || !reflect.DeepEqual(a, b) {
		t.Fatalf("single %+v != list %+v", a, b)
	}
	want := Section{ID: "001", Title: "T", Instructor: "A, B", Enrolled: 1, Capacity: 2, Method: "LEC",
		Meetings: []Meeting{{Days: "F", Start: "0900", End: "0950"}}}
	if !reflect.DeepEqual(a[0], want) {
		t.Fatalf("section = %+v, want %+v", a[0], want)
	}
}

func TestParseDatasetMeetings(t *testing.T) {
	t.Parallel()
	ds := mustDataset(t, `{"ws":{"WSRESPONSE":{"Subject":{"SUBJ":"CS","Course":{"COURSE":"CS100","Section":[
		{"SECTION":"001","Schedule":{}},
		{"SECTION":"002","Schedule":null},
		{"SECTION":"003"}
	]}}}}}`)
	secs := FindSections(ds, "CS100")
	if len(secs) != 3 {
		t.Fatalf("sections = %d", len(secs))
	}
	for _, s := range secs {
		if len(s.Meetings) != 0 {
			t.Fatalf("section %s meetings = %+v", s.ID, s.Meetings)
		}
	}
}

func TestParseDatasetMalformed(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{`[]`, `{}`, `{"ws":{}}`, `{"ws":{"WSRESPONSE":{"Subject":"x"}}}`} {
		_, err := ParseDataset([]byte(raw))
		var mp *MalformedPayloadError
		if !errors.As(err, &mp) {
			t.Fatalf("%s: want MalformedPayloadError, got %v", raw, err)
		}
	}
}

func TestParseDiscoveryNumericFields(t *testing.T) {
	t.Parallel()
	d, err := ParseDiscovery([]byte(`{"ct": 202090, "ts":{"WSRESPONSE":{"SOAXREF":{"DESCRIPTION":"2020 Fall","EDIVALUE":202090}}}}`))
	if err != nil {
		t.Fatalf("ParseDiscovery: %v", err)
	}
	if d.CurrentCode != "202090" || len(d.Semesters) != 1 || d.Semesters[0].Code != "202090" {
		t.Fatalf("discovery = %+v", d)
	}

	d, err = ParseDiscovery([]byte(`{"ct":"1"}`))
	if err != nil || d.Semesters != nil {
		t.Fatalf("missing SOAXREF: %+v, %v", d, err)
	}
}
