// Package eventlog provides an append-only JSON-lines log of dispatched
// kernel events, used to verify determinism across runs by hashing the
// resulting file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fairsim/marketsim/internal/kernel"
)

// Entry is the JSON-serializable record of one dispatched event.
type Entry struct {
	Time int64            `json:"time"`
	Seq  uint64           `json:"seq"`
	Kind kernel.EventKind `json:"kind"`

	Wakeup  uint64 `json:"wakeup,omitempty"`
	Deliver uint64 `json:"deliver,omitempty"`

	PublishTopic string `json:"publish_topic,omitempty"`

	MessageKind int8   `json:"message_kind,omitempty"`
	Sender      uint64 `json:"sender,omitempty"`
}

// entryFromEvent projects a dispatched kernel event into its log Entry.
// Kind is written as its integer value.
func entryFromEvent(e kernel.Event) Entry {
	entry := Entry{
		Time: e.Time,
		Seq:  e.Seq,
		Kind: e.Kind,
	}
	switch e.Kind {
	case kernel.EventWakeup:
		entry.Wakeup = uint64(e.Wakeup)
	case kernel.EventDeliver:
		entry.Deliver = uint64(e.Deliver)
		entry.MessageKind = int8(e.Message.Kind)
		entry.Sender = uint64(e.Message.Sender)
	case kernel.EventPublish:
		entry.PublishTopic = string(e.PublishTopic)
		entry.MessageKind = int8(e.Message.Kind)
		entry.Sender = uint64(e.Message.Sender)
	}
	return entry
}

// Writer writes dispatched events as JSON lines to a file.
type Writer struct {
	file   *os.File
	writer *bufio.Writer
	count  uint64
}

// NewWriter creates a new event log writer at the given path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create event log: %w", err)
	}
	return &Writer{
		file:   f,
		writer: bufio.NewWriterSize(f, 64*1024),
	}, nil
}

// Write appends one dispatched event to the log. kernel.Kernel.DispatchHook
// returns no error, so a caller wires Write in through a wrapper that
// handles the error it returns.
func (w *Writer) Write(event kernel.Event) error {
	data, err := json.Marshal(entryFromEvent(event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	return nil
}

// Close flushes and closes the log file.
func (w *Writer) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Count returns the number of events written.
func (w *Writer) Count() uint64 { return w.count }

// Reader reads entries from a JSON-lines event log.
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewReader opens an event log for reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 256*1024), 1024*1024)
	return &Reader{file: f, scanner: scanner}, nil
}

// Next reads the next entry. Returns nil, io.EOF at end of log.
func (r *Reader) Next() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &entry, nil
}

// ReadAll reads all entries from the log.
func (r *Reader) ReadAll() ([]*Entry, error) {
	var entries []*Entry
	for {
		e, err := r.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
}

// Close closes the log file.
func (r *Reader) Close() error {
	return r.file.Close()
}
