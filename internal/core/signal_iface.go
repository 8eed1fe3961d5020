//go:generate go run go.uber.org/mock/mockgen -source=signal_iface.go -destination=../mocks/mock_signal_connection.go -package=mocks
package core

import (
	"errors"

	"github.com/dkeye/relay/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is an opaque JSON payload. It is relayed as received.
type Frame []byte

// SignalConnection abstracts a session's live messaging channel.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports the outcome of one fan-out.
type PublishResult struct {
	SendTo  int
	Skipped int
	Dropped []domain.SessionID
}
