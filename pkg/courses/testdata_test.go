package courses

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const discoveryJSON = `{
  "ct": "202090",
  "ts": {"WSRESPONSE": {"SOAXREF": [
    {"DESCRIPTION": "2020 Fall", "EDIVALUE": "202090"},
    {"DESCRIPTION": "2020 Spring", "EDIVALUE": "202010"},
    {"DESCRIPTION": "2018 Fall", "EDIVALUE": "201890"}
  ]}}
}`

const fallJSON = `{"ws": {"WSRESPONSE": {"Subject": [
  {"SUBJ": "CS", "Course": [
    {"COURSE": "CS100", "Section": {
      "SECTION": "001", "TITLE": "ROADMAP TO COMPUTING", "INSTRUCTOR": ", ",
      "ENROLLED": "5", "CAPACITY": "30", "INSTRUCTIONMETHOD": "LEC"}},
    {"COURSE": "CS114", "Section": [
      {"SECTION": "002", "TITLE": "INTRO TO CS II", "INSTRUCTOR": "Smith, John",
       "ENROLLED": "12", "CAPACITY": "40", "INSTRUCTIONMETHOD": "LEC",
       "Schedule": [
         {"MTG_DAYS": "M", "START_TIME": "1000", "END_TIME": "1120"},
         {"MTG_DAYS": "W", "START_TIME": "1430", "END_TIME": "1550"}]},
      {"SECTION": "H01", "TITLE": "HONORS INTRO TO CS II", "INSTRUCTOR": "Doe, Jane",
       "ENROLLED": 9, "CAPACITY": 20, "INSTRUCTIONMETHOD": "HYBRID",
       "Schedule": {"MTG_DAYS": "R", "START_TIME": "0830", "END_TIME": "0950"}}
    ]}
  ]},
  {"SUBJ": "MATH", "Course": [{"COURSE": "MATH111", "Section": []}]}
]}}}`

const springJSON = `{"ws": {"WSRESPONSE": {"Subject": [
  {"SUBJ": "CS", "Course": [{"COURSE": "CS100", "Section": [
    {"SECTION": "101", "TITLE": "ROADMAP TO COMPUTING", "INSTRUCTOR": "Lee, Ann",
     "ENROLLED": "1", "CAPACITY": "25", "INSTRUCTIONMETHOD": "ONLINE"}]}]}
]}}}`

func wrap(payload string) string { return "define(" + payload + ")" }

// feedServer serves the envelope-wrapped payloads by term and counts requests.
type feedServer struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	hits   map[string]int
}

func newFeedServer(t *testing.T, bodies map[string]string) *feedServer {
	t.Helper()
	fs := &feedServer{bodies: bodies, status: map[string]int{}, hits: map[string]int{}}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("term")
		fs.mu.Lock()
		fs.hits[term]++
		status, body := fs.status[term], fs.bodies[term]
		fs.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if body == "" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) endpoint() string { return fs.URL + "/courses?term=" }

func (fs *feedServer) setStatus(term string, code int) {
	fs.mu.Lock()
	fs.status[term] = code
	fs.mu.Unlock()
}

func (fs *feedServer) hitCount(term string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[term]
}

func standardFeed() map[string]string {
	return map[string]string{
		"":       wrap(discoveryJSON),
		"202090": wrap(fallJSON),
		"202010": wrap(springJSON),
	}
}

func mustDataset(t *testing.T, raw string) *Dataset {
	t.Helper()
	ds, err := ParseDataset([]byte(raw))
	if err != nil {
		t.Fatalf("ParseDataset: %v", err)
	}
	return ds
}

func lines(s string) []string { return strings.Split(strings.TrimRight(s, "\n"), "\n") }
