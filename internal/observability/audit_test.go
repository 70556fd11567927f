package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ==================== AuditConfig Tests ====================

func TestDefaultAuditConfig(t *testing.T) {
	cfg := DefaultAuditConfig()
	if !cfg.Enabled {
		t.Fatal("expected enabled by default")
	}
	if cfg.OutputPath != "stdout" {
		t.Fatalf("expected stdout, got %s", cfg.OutputPath)
	}
}

// ==================== AuditLogger Tests ====================

func TestAuditLogger_New_File(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: logPath,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Fatal("expected log file to be created")
	}
}

func TestAuditLogger_New_NilConfig(t *testing.T) {
	l, err := NewAuditLogger(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger with default config")
	}
}

func TestAuditLogger_Log_Disabled(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:  &buf,
		enabled: false,
	}

	if err := l.Log(&AuditEvent{EventType: AuditEventRunStart}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() > 0 {
		t.Fatal("expected no output when disabled")
	}
}

func TestAuditLogger_Log_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:    &buf,
		sessionID: "test-session",
		userID:    "test-user",
		enabled:   true,
	}

	err := l.Log(&AuditEvent{
		EventType: AuditEventRunStart,
		ItemID:    "abc",
		Success:   true,
		Message:   "test message",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if event.EventType != AuditEventRunStart {
		t.Fatalf("expected run.start, got %s", event.EventType)
	}
	if event.ItemID != "abc" {
		t.Fatalf("expected abc, got %s", event.ItemID)
	}
	if event.SessionID != "test-session" {
		t.Fatalf("expected test-session, got %s", event.SessionID)
	}
	if event.UserID != "test-user" {
		t.Fatalf("expected test-user, got %s", event.UserID)
	}
	if _, err := uuid.Parse(event.ID); err != nil {
		t.Fatalf("expected uuid event id, got %q", event.ID)
	}
}

func TestAuditLogger_Log_FillsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:  &buf,
		enabled: true,
	}

	before := time.Now().UTC()
	l.Log(&AuditEvent{EventType: AuditEventRunStart})
	after := time.Now().UTC()

	var event AuditEvent
	json.Unmarshal(buf.Bytes(), &event)

	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Fatal("timestamp should be set automatically")
	}
}

func TestAuditLogger_SessionID_Generated(t *testing.T) {
	l, _ := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	})

	if _, err := uuid.Parse(l.SessionID()); err != nil {
		t.Fatalf("expected uuid session id, got %q", l.SessionID())
	}
}

// ==================== Convenience Methods Tests ====================

func decodeEvent(t *testing.T, buf *bytes.Buffer) AuditEvent {
	t.Helper()
	var event AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return event
}

func TestAuditLogger_LogRunStart(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerTo(&buf, "s1")

	l.LogRunStart(context.Background(), "run-1", "item-1", "https://www.arcgis.com")

	event := decodeEvent(t, &buf)
	if event.EventType != AuditEventRunStart {
		t.Fatalf("expected run.start, got %s", event.EventType)
	}
	if event.RunID != "run-1" || event.ItemID != "item-1" {
		t.Fatalf("unexpected ids: %+v", event)
	}
	if event.Portal != "https://www.arcgis.com" {
		t.Fatalf("expected portal, got %s", event.Portal)
	}
}

func TestAuditLogger_LogRunComplete(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerTo(&buf, "s1")

	l.LogRunComplete(context.Background(), "run-1", "item-1", 2*time.Second, 4, 6, 2)

	event := decodeEvent(t, &buf)
	if !event.Success {
		t.Fatal("expected success")
	}
	if event.Details["discovered"].(float64) != 4 {
		t.Fatalf("expected discovered=4, got %v", event.Details["discovered"])
	}
}

func TestAuditLogger_LogRunAuthRequired(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerTo(&buf, "s1")

	l.LogRunAuthRequired(context.Background(), "run-1", "item-1", "nested_map", "This web map is private.")

	event := decodeEvent(t, &buf)
	if event.Success {
		t.Fatal("expected failure")
	}
	if event.ErrorCode != "nested_map" {
		t.Fatalf("expected stage as error code, got %s", event.ErrorCode)
	}
}

func TestAuditLogger_LogRunError(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerTo(&buf, "s1")

	l.LogRunError(context.Background(), "run-1", "item-1", errors.New("boom"))

	event := decodeEvent(t, &buf)
	if event.ErrorDetail != "boom" {
		t.Fatalf("expected boom, got %s", event.ErrorDetail)
	}
}

func TestAuditLogger_LogTokenRequest_NoSecrets(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerTo(&buf, "s1")

	l.LogTokenRequest(context.Background(), "https://gis.example.org/portal", "alice", "referer", nil)

	if strings.Contains(buf.String(), "password") {
		t.Fatal("token events must not carry credentials")
	}
	event := decodeEvent(t, &buf)
	if event.UserID != "alice" || !event.Success {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestAuditLogger_LogExport(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerTo(&buf, "s1")

	l.LogExport(context.Background(), "item-1", "csv", "deps.csv", 512)

	event := decodeEvent(t, &buf)
	if event.Details["format"] != "csv" {
		t.Fatalf("expected csv, got %v", event.Details["format"])
	}
}

func TestAuditLogger_LogUpload_WithError(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditLoggerTo(&buf, "s1")

	l.LogUpload(context.Background(), "graphs", "a/b.json", 10, errors.New("denied"))

	event := decodeEvent(t, &buf)
	if event.Success || event.ErrorDetail != "denied" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestAuditLogger_Close_File(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	l, err := NewAuditLogger(&AuditConfig{Enabled: true, OutputPath: logPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.LogSessionReset(context.Background())
	if err := l.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), string(AuditEventSessionReset)) {
		t.Fatalf("expected session.reset in log, got %s", data)
	}
}

func TestAudit_DisabledByDefault(t *testing.T) {
	l := Audit()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if err := l.Log(&AuditEvent{EventType: AuditEventRunStart}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
