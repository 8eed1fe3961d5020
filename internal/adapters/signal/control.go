package signal

import (
	"errors"

	"github.com/dkeye/relay/internal/domain"
	"github.com/gorilla/websocket"
)

// closeFor maps a failed join to the close frame sent before hanging up.
func closeFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return websocket.ClosePolicyViolation, "room not found"
	default:
		return websocket.CloseInternalServerErr, "join failed"
	}
}

// reject closes a connection that never became a session.
func (ctl *SignalWSController) reject(c *WsSignalConn, err error) {
	code, text := closeFor(err)
	c.Close()
	ctl.writeClose(c, code, text)
	_ = c.conn.Close()
}
