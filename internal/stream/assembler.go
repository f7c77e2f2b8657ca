// Package stream assembles chat answers from the upstream gateway's
// line-framed event stream.
//
// The upstream body is a sequence of "\n"-terminated lines. Lines starting
// with "data: " carry a JSON object; everything else is ignored. Lines are
// split on raw bytes before any decoding, so a multi-byte character or a
// JSON object split across reads is reassembled intact.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/legal-ai/legal-assistant/pkg/metrics"
)

// Update is emitted for every message frame.
type Update struct {
	Delta string
	Text  string
}

// Result is the final state of a turn.
type Result struct {
	Text           string
	ConversationID string
	// Empty is set when the stream ended without any non-whitespace text.
	Empty   bool
	Skipped int
}

// Assembler reads frames from one upstream body. It is not safe for
// concurrent use and owns no goroutines.
type Assembler struct {
	body   io.ReadCloser
	reader *bufio.Reader

	text           strings.Builder
	conversationID string
	skipped        int

	eof    bool
	err    error
	closed bool
}

// NewAssembler wraps an upstream body. The caller must Close it.
func NewAssembler(body io.ReadCloser) *Assembler {
	return &Assembler{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Next returns the next update. It returns io.EOF once the upstream closes,
// and an *InterruptedError if reading fails or ctx is cancelled.
func (a *Assembler) Next(ctx context.Context) (Update, error) {
	if a.err != nil {
		return Update{}, a.err
	}

	for {
		if a.eof {
			return Update{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Update{}, a.fail(err)
		}

		line, err := a.reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Update{}, a.fail(err)
			}
			a.eof = true
		}

		if u, ok := a.handleLine(bytes.TrimSuffix(line, []byte("\n"))); ok {
			return u, nil
		}
	}
}

func (a *Assembler) handleLine(line []byte) (Update, bool) {
	frame, ok := ParseLine(line)
	if !ok {
		return Update{}, false
	}

	switch frame.Kind {
	case FrameMessageDelta:
		a.text.WriteString(frame.Text)
		return Update{Delta: frame.Text, Text: a.text.String()}, true
	case FrameConversationEnd:
		a.conversationID = frame.ConversationID
	default:
		a.skipped++
		metrics.StreamFramesSkipped.Inc()
	}
	return Update{}, false
}

func (a *Assembler) fail(err error) error {
	a.err = &InterruptedError{Partial: a.text.String(), Err: err}
	return a.err
}

// Run drives the stream to completion, calling fn for every update. A
// non-nil error from fn stops the read and is returned as is. The Result
// always carries whatever text was assembled.
func (a *Assembler) Run(ctx context.Context, fn func(Update) error) (Result, error) {
	for {
		u, err := a.Next(ctx)
		if errors.Is(err, io.EOF) {
			return a.Result(), nil
		}
		if err != nil {
			return a.Result(), err
		}
		if fn != nil {
			if err := fn(u); err != nil {
				return a.Result(), err
			}
		}
	}
}

// Result snapshots the assembled state.
func (a *Assembler) Result() Result {
	text := a.text.String()
	return Result{
		Text:           text,
		ConversationID: a.conversationID,
		Empty:          strings.TrimSpace(text) == "",
		Skipped:        a.skipped,
	}
}

// Close releases the upstream body. It is safe to call more than once.
func (a *Assembler) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.body.Close()
}
