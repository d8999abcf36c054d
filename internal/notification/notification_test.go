package notification

import (
	"errors"
	"testing"
)

// mockNotification records deliveries.
type mockNotification struct {
	calls []struct {
		title   string
		message string
	}
	err error
}

func (m *mockNotification) notify(title, message, icon string) error {
	m.calls = append(m.calls, struct {
		title   string
		message string
	}{title, message})
	return m.err
}

func TestSend(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		message     string
		mockErr     error
		expectError bool
	}{
		{name: "successful notification", title: "Title", message: "Message"},
		{name: "delivery error surfaces", title: "Title", message: "Message", mockErr: errors.New("boom"), expectError: true},
		{name: "empty title", message: "body only"},
		{name: "empty message", title: "title only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockNotification{err: tt.mockErr}
			SetNotifier(mock.notify)
			defer ResetNotifier()

			err := Send(tt.title, tt.message)

			if tt.expectError && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if len(mock.calls) != 1 {
				t.Fatalf("expected 1 delivery, got %d", len(mock.calls))
			}
			if mock.calls[0].title != tt.title || mock.calls[0].message != tt.message {
				t.Errorf("delivered %q/%q, want %q/%q", mock.calls[0].title, mock.calls[0].message, tt.title, tt.message)
			}
		})
	}
}

func TestApprovalNeeded(t *testing.T) {
	mock := &mockNotification{}
	SetNotifier(mock.notify)
	defer ResetNotifier()

	if err := ApprovalNeeded("Bash"); err != nil {
		t.Fatal(err)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(mock.calls))
	}
	if mock.calls[0].message != "Bash is waiting for approval" {
		t.Errorf("message = %q", mock.calls[0].message)
	}
}

func TestSessionCompleted(t *testing.T) {
	mock := &mockNotification{}
	SetNotifier(mock.notify)
	defer ResetNotifier()

	if err := SessionCompleted("abcdef01-2345"); err != nil {
		t.Fatal(err)
	}
	if mock.calls[0].message != "Session abcdef01 complete" {
		t.Errorf("message = %q", mock.calls[0].message)
	}

	if err := SessionCompleted(""); err != nil {
		t.Fatal(err)
	}
	if mock.calls[1].message != "Session complete" {
		t.Errorf("message = %q", mock.calls[1].message)
	}
}
