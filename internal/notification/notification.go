// Package notification provides cross-platform desktop notifications.
// It uses the beeep library to send notifications on macOS, Linux, and Windows.
package notification

import (
	"github.com/gen2brain/beeep"

	"github.com/drydock-sh/drydock/internal/logger"
)

// notifyFunc matches beeep.Notify so tests can intercept delivery.
type notifyFunc func(title, message, icon string) error

var notifier notifyFunc = beeep.Notify

// SetNotifier replaces the delivery function. Test hook.
func SetNotifier(fn notifyFunc) { notifier = fn }

// ResetNotifier restores delivery through beeep.
func ResetNotifier() { notifier = beeep.Notify }

// Send sends a desktop notification with the given title and message.
// On macOS, it uses terminal-notifier or AppleScript.
// On Linux, it uses D-Bus or notify-send.
// On Windows, it uses the Windows Runtime COM API.
func Send(title, message string) error {
	logger.Debug("notification: sending title=%q, message=%q", title, message)
	// Empty icon lets beeep pick the platform default.
	err := notifier(title, message, "")
	if err != nil {
		logger.Warn("notification: send failed: %v", err)
	}
	return err
}

// ApprovalNeeded notifies that a tool request is waiting on the user.
func ApprovalNeeded(toolName string) error {
	return Send("Drydock", toolName+" is waiting for approval")
}

// SessionCompleted notifies that an agent session has finished its turn.
func SessionCompleted(sessionID string) error {
	name := sessionID
	if len(name) > 8 {
		name = name[:8]
	}
	if name == "" {
		return Send("Drydock", "Session complete")
	}
	return Send("Drydock", "Session "+name+" complete")
}
