package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "auth")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithTool(t *testing.T) {
	logger := slog.Default()
	result := WithTool(logger, "GMAIL_FETCH_EMAILS")
	if result == nil {
		t.Error("WithTool returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("query"), KeyOperation, "query"},
		{"toolkit", Toolkit("gmail"), KeyToolkit, "gmail"},
		{"session", Session("trs_1"), KeySession, "trs_1"},
		{"connection", Connection("conn_123"), KeyConnection, "conn_123"},
		{"tool", Tool("GMAIL_FETCH_EMAILS"), KeyTool, "GMAIL_FETCH_EMAILS"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	err := errors.New("test error")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// Empty Group has empty key
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"verbose", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	logger.Debug("hidden")
	logger.Info("shown", Tool("x"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "tool=x") {
		t.Errorf("info message missing from output: %q", out)
	}
}

func TestAnonymizeUser(t *testing.T) {
	tests := []struct {
		userID   string
		wantLen  int
		hasValue bool
	}{
		{"jane@example.com", 21, true}, // "user:" + 16 hex chars
		{"default", 21, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			result := AnonymizeUser(tt.userID)
			if tt.hasValue {
				if len(result) != tt.wantLen {
					t.Errorf("AnonymizeUser(%q) length = %d, want %d", tt.userID, len(result), tt.wantLen)
				}
				if !strings.HasPrefix(result, "user:") {
					t.Errorf("AnonymizeUser(%q) should start with 'user:', got %q", tt.userID, result)
				}
			} else if result != "" {
				t.Errorf("AnonymizeUser(%q) = %q, want empty string", tt.userID, result)
			}
		})
	}

	if AnonymizeUser("a@example.com") != AnonymizeUser("a@example.com") {
		t.Error("AnonymizeUser should return deterministic results")
	}
	if AnonymizeUser("a@example.com") == AnonymizeUser("b@example.com") {
		t.Error("Different ids should produce different hashes")
	}
}

func TestUserHash(t *testing.T) {
	attr := UserHash("jane@example.com")
	if attr.Key != KeyUserHash {
		t.Errorf("UserHash key = %q, want %q", attr.Key, KeyUserHash)
	}
	if len(attr.Value.String()) != 21 {
		t.Errorf("UserHash value length = %d, want 21", len(attr.Value.String()))
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := SanitizeToken(tt.token)
			if result != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, result, tt.expected)
			}
		})
	}
}
