package service

import (
	"github.com/monmlabs/monm-server/internal/model"
)

// Notifier pushes live events to connected clients. The WebSocket hub
// implements it; business logic only ever sees this narrow interface.
type Notifier interface {
	NewMessage(msg *model.Message, recipientIDs []string)
}

// NoopNotifier drops all events. Used in tests and tooling.
type NoopNotifier struct{}

func (NoopNotifier) NewMessage(msg *model.Message, recipientIDs []string) {}
