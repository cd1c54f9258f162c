package courses

import (
	"context"
	"strings"
	"time"
)

const (
	DefaultPageThreshold = 1800
	DefaultPageDelay     = time.Second

	codeFence = "```"
	// Telegram reads text on the opening fence line as a language tag, so
	// content always starts on the next line.
	openFence = codeFence + "\n"
)

// Sender is the output channel chunks are written to.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type SenderFunc func(ctx context.Context, text string) error

func (f SenderFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// Paginator splits a Table into code-block chunks on row boundaries.
type Paginator struct {
	Threshold int
	Delay     time.Duration
}

func NewPaginator(threshold int, delay time.Duration) Paginator {
	if threshold <= 0 {
		threshold = DefaultPageThreshold
	}
	if delay < 0 {
		delay = 0
	}
	return Paginator{Threshold: threshold, Delay: delay}
}

// Chunks closes the current block before any row that would bring it, with
// its closing fence, to Threshold or more. A block always holds at least one
// row, so only a single oversized row can exceed Threshold.
func (p Paginator) Chunks(t Table) []string {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultPageThreshold
	}

	var (
		out  []string
		buf  strings.Builder
		rows int
	)
	buf.WriteString(t.Header)
	buf.WriteString(openFence)
	buf.WriteString(t.Columns)

	for _, row := range t.Rows {
		if rows > 0 && buf.Len()+len(row)+len(codeFence) >= threshold {
			buf.WriteString(codeFence)
			out = append(out, buf.String())
			buf.Reset()
			buf.WriteString(openFence)
			rows = 0
		}
		buf.WriteString(row)
		rows++
	}
	buf.WriteString(codeFence)
	return append(out, buf.String())
}

// Send writes every chunk to s, pausing Delay between chunks.
func (p Paginator) Send(ctx context.Context, s Sender, t Table) error {
	chunks := p.Chunks(t)
	for i, c := range chunks {
		if err := s.Send(ctx, c); err != nil {
			return err
		}
		if i == len(chunks)-1 || p.Delay <= 0 {
			continue
		}
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
