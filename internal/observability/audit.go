package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventRunStart     AuditEventType = "run.start"
	AuditEventRunComplete  AuditEventType = "run.complete"
	AuditEventRunAuth      AuditEventType = "run.auth_required"
	AuditEventRunError     AuditEventType = "run.error"
	AuditEventTokenRequest AuditEventType = "token.request"
	AuditEventTokenClear   AuditEventType = "token.clear"
	AuditEventExport       AuditEventType = "export.write"
	AuditEventGraphStore   AuditEventType = "graph.store"
	AuditEventUpload       AuditEventType = "artifact.upload"
	AuditEventSessionReset AuditEventType = "session.reset"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	RunID       string                 `json:"run_id,omitempty"`
	ItemID      string                 `json:"item_id,omitempty"`
	Portal      string                 `json:"portal,omitempty"`
	UserID      string                 `json:"user_id,omitempty"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorCode   string                 `json:"error_code,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger handles audit event logging.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	userID    string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
	UserID     string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		userID:    config.UserID,
		enabled:   config.Enabled,
	}, nil
}

// NewAuditLoggerTo creates an enabled audit logger writing to w.
func NewAuditLoggerTo(w io.Writer, sessionID string) *AuditLogger {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &AuditLogger{writer: w, sessionID: sessionID, enabled: true}
}

// SessionID returns the session id stamped on events.
func (l *AuditLogger) SessionID() string { return l.sessionID }

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}
	if event.UserID == "" {
		event.UserID = l.userID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogRunStart logs the start of a resolution run.
func (l *AuditLogger) LogRunStart(ctx context.Context, runID, itemID, portal string) {
	l.Log(&AuditEvent{
		EventType: AuditEventRunStart,
		RunID:     runID,
		ItemID:    itemID,
		Portal:    portal,
		Success:   true,
		Message:   fmt.Sprintf("Resolving %s", itemID),
	})
}

// LogRunComplete logs a successful resolution run.
func (l *AuditLogger) LogRunComplete(ctx context.Context, runID, itemID string, duration time.Duration, discovered, edges, urls int) {
	l.Log(&AuditEvent{
		EventType: AuditEventRunComplete,
		RunID:     runID,
		ItemID:    itemID,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("Resolved %s: %d items, %d edges, %d urls", itemID, discovered, edges, urls),
		Details: map[string]interface{}{
			"discovered": discovered,
			"edges":      edges,
			"urls":       urls,
		},
	})
}

// LogRunAuthRequired logs a run aborted because a resource needs a token.
func (l *AuditLogger) LogRunAuthRequired(ctx context.Context, runID, itemID, stage, notice string) {
	l.Log(&AuditEvent{
		EventType: AuditEventRunAuth,
		RunID:     runID,
		ItemID:    itemID,
		Success:   false,
		Message:   notice,
		ErrorCode: stage,
	})
}

// LogRunError logs a failed resolution run.
func (l *AuditLogger) LogRunError(ctx context.Context, runID, itemID string, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventRunError,
		RunID:       runID,
		ItemID:      itemID,
		Success:     false,
		Message:     fmt.Sprintf("Resolution of %s failed", itemID),
		ErrorDetail: err.Error(),
	})
}

// LogTokenRequest logs a token request. Credentials are never recorded.
func (l *AuditLogger) LogTokenRequest(ctx context.Context, portal, username, mode string, err error) {
	event := &AuditEvent{
		EventType: AuditEventTokenRequest,
		Portal:    portal,
		UserID:    username,
		Success:   err == nil,
		Message:   fmt.Sprintf("Token requested (%s)", mode),
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogTokenClear logs removal of the session token.
func (l *AuditLogger) LogTokenClear(ctx context.Context) {
	l.Log(&AuditEvent{
		EventType: AuditEventTokenClear,
		Success:   true,
		Message:   "Token cleared",
	})
}

// LogExport logs an export of the current graph.
func (l *AuditLogger) LogExport(ctx context.Context, itemID, format, destination string, size int) {
	l.Log(&AuditEvent{
		EventType: AuditEventExport,
		ItemID:    itemID,
		Success:   true,
		Message:   fmt.Sprintf("Exported %s as %s", itemID, format),
		Details: map[string]interface{}{
			"format":      format,
			"destination": destination,
			"size":        size,
		},
	})
}

// LogGraphStore logs a write of the graph to the graph database.
func (l *AuditLogger) LogGraphStore(ctx context.Context, itemID string, nodes, edges int, err error) {
	event := &AuditEvent{
		EventType: AuditEventGraphStore,
		ItemID:    itemID,
		Success:   err == nil,
		Message:   fmt.Sprintf("Stored graph for %s", itemID),
		Details: map[string]interface{}{
			"nodes": nodes,
			"edges": edges,
		},
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogUpload logs an artifact upload to object storage.
func (l *AuditLogger) LogUpload(ctx context.Context, bucket, key string, size int64, err error) {
	event := &AuditEvent{
		EventType: AuditEventUpload,
		Success:   err == nil,
		Message:   fmt.Sprintf("Uploaded %s/%s", bucket, key),
		Details: map[string]interface{}{
			"bucket": bucket,
			"key":    key,
			"size":   size,
		},
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogSessionReset logs a user-initiated session reset.
func (l *AuditLogger) LogSessionReset(ctx context.Context) {
	l.Log(&AuditEvent{
		EventType: AuditEventSessionReset,
		Success:   true,
		Message:   "Session reset",
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// Global audit logger instance
var globalAuditLogger *AuditLogger
var auditOnce sync.Once

// InitGlobalAuditLogger initializes the global audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
