package signal

import (
	"context"

	"github.com/dkeye/relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandleRoom upgrades the request and runs one session in the room named by
// the :room_id path parameter. Unknown rooms are closed with a
// policy-violation frame and never become sessions.
func (ctl *SignalWSController) HandleRoom(ctx context.Context, c *gin.Context) {
	roomID := domain.RoomID(c.Param("room_id"))
	visitor := c.GetString(VisitorKey)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := newWsSignalConn(ws, ctl.SendBuffer)

	sess, err := ctl.Orch.Join(ctx, roomID, conn)
	if err != nil {
		log.Warn().
			Err(err).
			Str("module", "signal").
			Str("room", string(roomID)).
			Str("visitor", visitor).
			Msg("join rejected")
		ctl.reject(conn, err)
		return
	}
	log.Info().
		Str("module", "signal").
		Str("sid", string(sess.ID)).
		Str("room", string(roomID)).
		Str("visitor", visitor).
		Msg("new WS session")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sess.ID, conn)
}
