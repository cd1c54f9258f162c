package courses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func bigTable(n int) Table {
	t := Table{Header: "🗓 2020 Fall - CS100 (X)\n", Columns: "SECTION  INSTRUCTOR\n"}
	for i := range n {
		t.Rows = append(t.Rows, fmt.Sprintf("%03d      Instructor Number %-30d 10/20\n", i, i))
	}
	return t
}

func TestChunksRespectThresholdAndRows(t *testing.T) {
	t.Parallel()
	tbl := bigTable(200)
	p := NewPaginator(DefaultPageThreshold, 0)
	chunks := p.Chunks(tbl)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	var body strings.Builder
	for i, c := range chunks {
		if len(c) >= DefaultPageThreshold {
			t.Fatalf("chunk %d length %d >= threshold", i, len(c))
		}
		if !strings.HasSuffix(c, "```") {
			t.Fatalf("chunk %d not closed: %q", i, c[len(c)-10:])
		}
		inner := strings.TrimSuffix(c, "```")
		if i == 0 {
			inner = strings.TrimPrefix(inner, tbl.Header+"```\n"+tbl.Columns)
		} else {
			inner = strings.TrimPrefix(inner, "```\n")
		}
		if inner != "" && !strings.HasSuffix(inner, "\n") {
			t.Fatalf("chunk %d splits a row", i)
		}
		body.WriteString(inner)
	}
	if body.String() != strings.Join(tbl.Rows, "") {
		t.Fatal("rows lost or reordered across chunks")
	}
}

func TestChunksSmallTableSingleBlock(t *testing.T) {
	t.Parallel()
	tbl := Table{Header: "h\n", Columns: "c\n", Rows: []string{"r1\n", "r2\n"}}
	chunks := NewPaginator(0, 0).Chunks(tbl)
	if len(chunks) != 1 || chunks[0] != "h\n```\nc\nr1\nr2\n```" {
		t.Fatalf("chunks = %q", chunks)
	}
}

func TestChunksOversizedRowStillEmitted(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 50) + "\n"
	tbl := Table{Columns: "c\n", Rows: []string{"a\n", long, "b\n"}}
	chunks := NewPaginator(40, 0).Chunks(tbl)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %q", chunks)
	}
	if chunks[1] != "```\n"+long+"```" {
		t.Fatalf("oversized chunk = %q", chunks[1])
	}
}

// Every opening fence must sit alone on its line, and the first line after it
// must be the column header or a whole row.
func TestChunksFenceLinesAreBare(t *testing.T) {
	t.Parallel()
	ds := &Dataset{Subjects: []Subject{{Code: "CS", Courses: []Course{{Number: "CS100"}}}}}
	for i := range 61 {
		ds.Subjects[0].Courses[0].Sections = append(ds.Subjects[0].Courses[0].Sections, Section{
			ID: fmt.Sprintf("%03d", i), Title: "ROADMAP TO COMPUTING", Instructor: "Smith, John",
			Enrolled: 5, Capacity: 30, Method: "LEC",
		})
	}
	res := &Result{Mode: DisplayFull, Semester: "2020 Fall", Course: "CS100", Sections: FindSections(ds, "CS100")}
	tbl := Render(res)

	chunks := NewPaginator(0, 0).Chunks(tbl)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	next := 0
	for i, c := range chunks {
		body := c
		if i == 0 {
			body = strings.TrimPrefix(c, tbl.Header)
		}
		fence, rest, ok := strings.Cut(body, "\n")
		if !ok || fence != "```" {
			t.Fatalf("chunk %d fence line = %q", i, fence)
		}
		if i == 0 {
			if !strings.HasPrefix(rest, tbl.Columns) {
				t.Fatalf("chunk 0 does not start with the columns: %q", rest)
			}
			rest = strings.TrimPrefix(rest, tbl.Columns)
		}
		if !strings.HasPrefix(rest, tbl.Rows[next]) {
			t.Fatalf("chunk %d starts with %q, want row %q", i, rest, tbl.Rows[next])
		}
		next += strings.Count(strings.TrimSuffix(rest, "```"), "\n")
	}
	if next != len(tbl.Rows) {
		t.Fatalf("rows seen = %d, want %d", next, len(tbl.Rows))
	}
}

type recordingSender struct {
	texts []string
	at    []time.Time
	err   error
}

func (r *recordingSender) Send(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	r.at = append(r.at, time.Now())
	return r.err
}

func TestPaginatorSendPaces(t *testing.T) {
	t.Parallel()
	tbl := bigTable(120)
	p := NewPaginator(DefaultPageThreshold, 20*time.Millisecond)
	want := len(p.Chunks(tbl))

	s := &recordingSender{}
	start := time.Now()
	if err := p.Send(context.Background(), s, tbl); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(s.texts) != want {
		t.Fatalf("sent %d chunks, want %d", len(s.texts), want)
	}
	if elapsed := time.Since(start); elapsed < time.Duration(want-1)*20*time.Millisecond {
		t.Fatalf("sent too fast: %v for %d chunks", elapsed, want)
	}
}

func TestPaginatorSendStops(t *testing.T) {
	t.Parallel()
	tbl := bigTable(120)

	boom := errors.New("boom")
	s := &recordingSender{err: boom}
	if err := NewPaginator(0, 0).Send(context.Background(), s, tbl); !errors.Is(err, boom) || len(s.texts) != 1 {
		t.Fatalf("err = %v, sent = %d", err, len(s.texts))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s = &recordingSender{}
	if err := NewPaginator(0, time.Hour).Send(ctx, s, tbl); !errors.Is(err, context.Canceled) || len(s.texts) != 1 {
		t.Fatalf("err = %v, sent = %d", err, len(s.texts))
	}
}
