// Package sse decodes text/event-stream bodies into frames.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Frame is one dispatched server-sent event.
type Frame struct {
	// Event is the value of the last "event" field, empty if none was sent.
	Event string
	// Data holds the "data" lines joined with "\n".
	Data string
	// Retry is the reconnection hint carried by a "retry" field.
	Retry time.Duration
	// HasRetry reports whether a valid "retry" field was seen.
	HasRetry bool
}

// Name returns the event name, defaulting to "message" like browsers do.
func (f Frame) Name() string {
	if f.Event == "" {
		return "message"
	}
	return f.Event
}

// IsHeartbeat reports whether the frame carries neither a name nor data.
func (f Frame) IsHeartbeat() bool {
	return f.Event == "" && f.Data == ""
}

// Decoder reads frames from an event stream. It keeps no state beyond the
// frame under construction, so reads may split the input at any byte.
type Decoder struct {
	r *bufio.Reader

	event    string
	data     strings.Builder
	hasData  bool
	retry    time.Duration
	hasRetry bool
	seen     bool
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next complete frame. It returns io.EOF once the input is
// exhausted; a frame that was not terminated by a blank line is dropped.
func (d *Decoder) Next() (Frame, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				d.reset()
			}
			return Frame{}, err
		}
		line = strings.TrimSuffix(line[:len(line)-1], "\r")

		if line == "" {
			if !d.seen {
				continue
			}
			f := Frame{
				Event:    d.event,
				Data:     d.data.String(),
				Retry:    d.retry,
				HasRetry: d.hasRetry,
			}
			d.reset()
			return f, nil
		}
		d.field(line)
	}
}

func (d *Decoder) field(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "event":
		d.event = value
	case "data":
		if d.hasData {
			d.data.WriteByte('\n')
		}
		d.data.WriteString(value)
		d.hasData = true
	case "retry":
		ms, err := strconv.ParseUint(value, 10, 63)
		if err != nil {
			// Malformed hints are ignored but still count as a field.
			break
		}
		d.retry = time.Duration(ms) * time.Millisecond
		d.hasRetry = true
	case "id":
	default:
		return
	}
	d.seen = true
}

func (d *Decoder) reset() {
	d.event = ""
	d.data.Reset()
	d.hasData = false
	d.retry = 0
	d.hasRetry = false
	d.seen = false
}
