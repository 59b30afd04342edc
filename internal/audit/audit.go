package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeDecrypt represents a container decryption run.
	EventTypeDecrypt EventType = "decrypt"
	// EventTypePack represents a container packing run.
	EventTypePack EventType = "pack"
)

// AuditEvent represents a single audit log event.
type AuditEvent struct {
	Timestamp  time.Time              `json:"timestamp"`
	EventType  EventType              `json:"event_type"`
	Input      string                 `json:"input,omitempty"`
	Output     string                 `json:"output,omitempty"`
	Transform  string                 `json:"transform,omitempty"`
	InputSize  int                    `json:"input_size"`
	OutputSize int                    `json:"output_size"`
	Success    bool                   `json:"success"`
	ErrorClass string                 `json:"error_class,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
	Duration   time.Duration          `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Run describes a finished decrypt or pack run.
type Run struct {
	Input      string
	Output     string
	Transform  string
	InputSize  int
	OutputSize int
	Warnings   []string
	ErrorClass string
	Err        error
	Duration   time.Duration
	Metadata   map[string]interface{}
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log logs an audit event.
	Log(event *AuditEvent) error

	// LogDecrypt logs a decryption run. It returns the writer's error, if any.
	LogDecrypt(run Run) error

	// LogPack logs a packing run. It returns the writer's error, if any.
	LogPack(run Run) error

	// Events returns a copy of the events kept in memory.
	Events() []*AuditEvent
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu        sync.Mutex
	events    []*AuditEvent
	maxEvents int
	writer    EventWriter
}

// NewLogger creates a new audit logger. A nil writer writes JSON lines to stdout.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	if writer == nil {
		writer = NewJSONWriter(os.Stdout)
	}

	return &auditLogger{
		events:    make([]*AuditEvent, 0, maxEvents),
		maxEvents: maxEvents,
		writer:    writer,
	}
}

// Log logs an audit event. The event is kept in memory even when the
// writer fails; the write error is returned.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var writeErr error
	if l.writer != nil {
		writeErr = l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return writeErr
}

func (l *auditLogger) logRun(eventType EventType, run Run) error {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		Input:      run.Input,
		Output:     run.Output,
		Transform:  run.Transform,
		InputSize:  run.InputSize,
		OutputSize: run.OutputSize,
		Success:    run.Err == nil,
		ErrorClass: run.ErrorClass,
		Warnings:   run.Warnings,
		Duration:   run.Duration,
		Metadata:   run.Metadata,
	}

	if run.Err != nil {
		event.Error = run.Err.Error()
	}

	return l.Log(event)
}

// LogDecrypt logs a decryption run.
func (l *auditLogger) LogDecrypt(run Run) error {
	return l.logRun(EventTypeDecrypt, run)
}

// LogPack logs a packing run.
func (l *auditLogger) LogPack(run Run) error {
	return l.logRun(EventTypePack, run)
}

// Events returns all audit events kept in memory.
func (l *auditLogger) Events() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}

// jsonWriter writes one JSON document per line.
type jsonWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONWriter returns an EventWriter that writes JSON lines to out.
func NewJSONWriter(out io.Writer) EventWriter {
	return &jsonWriter{out: out}
}

func (w *jsonWriter) WriteEvent(event *AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.out, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// OpenFileWriter opens path for appending JSON lines. The returned closer
// must be closed once auditing is done.
func OpenFileWriter(path string) (EventWriter, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return NewJSONWriter(f), f, nil
}
