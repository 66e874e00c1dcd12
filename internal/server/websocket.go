package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cryguy/renderworker/internal/core"
	"github.com/cryguy/renderworker/internal/session"
)

// MaxWSMessageBytes bounds one inbound protocol frame.
const MaxWSMessageBytes = 1 << 20

const pingInterval = 30 * time.Second

// handleWebSocket relays protocol messages between a connection and a
// dedicated session until either side goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		core.Logger().Warn("server: websocket accept", "error", err)
		return
	}
	conn.SetReadLimit(MaxWSMessageBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	opts := s.opts
	opts.ID = ""
	sess := session.Start(ctx, opts)
	log := core.Logger().With("session", sess.ID())
	log.Info("server: websocket session opened")

	go func() {
		defer sess.Terminate()
		for {
			var msg core.Message
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				var ce websocket.CloseError
				if !errors.As(err, &ce) && ctx.Err() == nil {
					log.Debug("server: websocket read", "error", err)
				}
				return
			}
			if err := sess.Send(ctx, msg); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-sess.Outbox():
			if !ok {
				log.Info("server: websocket session closed")
				_ = conn.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, msg)
			cancelWrite()
			if err != nil {
				sess.Terminate()
				<-sess.Done()
				return
			}
		case <-ping.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				sess.Terminate()
				<-sess.Done()
				return
			}
		}
	}
}
