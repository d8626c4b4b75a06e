package anthropic

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/petal-labs/anthropic-go/internal/sse"
)

// MessageStream reads the events of a streaming response one at a time:
//
//	stream, err := client.Messages.Stream(ctx, params)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    if d, ok := stream.Current().(*anthropic.ContentBlockDeltaEvent); ok {
//	        ...
//	    }
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
//
// Nothing is read ahead: each call to Next decodes exactly the frames needed
// for one event. Closing the stream closes the connection. A MessageStream is
// not safe for concurrent use, except for Close.
type MessageStream struct {
	body     io.ReadCloser
	dec      *sse.Decoder
	logger   *slog.Logger
	provider string

	cur  StreamEvent
	err  error
	done bool

	closeOnce sync.Once
	closeErr  error
}

// NewMessageStream decodes events from an SSE body. The stream takes
// ownership of body.
func NewMessageStream(body io.ReadCloser, logger *slog.Logger) *MessageStream {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MessageStream{
		body:     body,
		dec:      sse.NewDecoder(body),
		logger:   logger,
		provider: "anthropic",
	}
}

// Next advances to the next event. It returns false at the end of the
// stream or on the first error; check Err afterwards.
func (s *MessageStream) Next() bool {
	if s.done {
		return false
	}
	for {
		f, err := s.dec.Next()
		if err == io.EOF {
			s.finish(nil)
			return false
		}
		if err != nil {
			s.finish(err)
			return false
		}
		ev, err := decodeEvent(f, s.logger)
		if err != nil {
			s.finish(err)
			return false
		}
		if ev == nil {
			continue
		}
		if e, ok := ev.(*ErrorEvent); ok {
			s.cur = ev
			s.finish(e.apiError(s.provider))
			return false
		}
		s.cur = ev
		return true
	}
}

// Current returns the event read by the last successful Next. After an
// error event ends the stream, Current returns that *ErrorEvent.
func (s *MessageStream) Current() StreamEvent {
	return s.cur
}

// Err returns the error that ended the stream, or nil if it ended normally.
func (s *MessageStream) Err() error {
	return s.err
}

// Close releases the connection. It is safe to call more than once.
func (s *MessageStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

func (s *MessageStream) finish(err error) {
	s.done = true
	if err != nil && s.err == nil {
		s.err = err
	}
	s.Close()
}

// All returns an iterator over the remaining events. Iteration stops after
// yielding the first error.
func (s *MessageStream) All() iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Current(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Accumulate consumes the stream and returns the final message. observer,
// if non-nil, sees every event before it is applied, including a terminal
// error event; an observer error stops the stream and is returned wrapped.
// The stream is closed on return.
func (s *MessageStream) Accumulate(observer func(StreamEvent) error) (*Message, error) {
	defer s.Close()
	acc := NewAccumulator()
	acc.provider = s.provider
	for s.Next() {
		ev := s.Current()
		if observer != nil {
			if err := observer(ev); err != nil {
				s.finish(fmt.Errorf("stream observer: %w", err))
				return nil, s.err
			}
		}
		if err := acc.Apply(ev); err != nil {
			s.finish(err)
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		if e, ok := s.cur.(*ErrorEvent); ok && observer != nil {
			// The stream already failed; its error wins over the observer's.
			_ = observer(e)
		}
		return nil, err
	}
	return acc.Message()
}

// Message consumes the stream and returns the final message.
func (s *MessageStream) Message() (*Message, error) {
	return s.Accumulate(nil)
}

// TextStream returns an iterator over text deltas only.
func (s *MessageStream) TextStream() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for ev, err := range s.All() {
			if err != nil {
				yield("", err)
				return
			}
			d, ok := ev.(*ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			if t, ok := d.Delta.(*TextDelta); ok && !yield(t.Text, nil) {
				return
			}
		}
	}
}
