package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/draft"
	"github.com/DoyleJ11/draftroom/internal/hub"
	"github.com/DoyleJ11/draftroom/internal/lobby"
	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/internal/store"
	"github.com/DoyleJ11/draftroom/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 2 * time.Minute
)

// Handler streams a session's events to one websocket and turns the client's messages into
// draft operations. Without a participant id the connection is read-only.
func Handler(svc *draft.Service, h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		var p store.Participant
		if id := r.URL.Query().Get("participant"); id != "" {
			var err error
			p, err = svc.Participant(r.Context(), id)
			if err != nil || p.SessionID != sessionID {
				http.Error(w, "participant not found", http.StatusNotFound)
				return
			}
		} else if _, err := svc.GetSession(r.Context(), sessionID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load session", http.StatusInternalServerError)
			return
		}

		select {
		case <-h.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		default:
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan realtime.Envelope, 32)
		replies := make(chan types.ServerMessage, 8)
		clientID := uuid.NewString()
		clog := log.With(zap.String("session_id", sessionID), zap.String("client_id", clientID))

		lb := h.Join(sessionID, clientID, out)
		if lb == nil {
			return
		}
		defer func() {
			lb.Send(lobby.Leave{ClientID: clientID})
			h.Release(sessionID)
		}()

		if p.ID != "" {
			if _, err := svc.SetConnected(r.Context(), p.ID, true); err != nil {
				clog.Error("mark connected", zap.Error(err))
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
				defer cancel()
				if _, err := svc.SetConnected(ctx, p.ID, false); err != nil {
					clog.Error("mark disconnected", zap.Error(err))
				}
			}()
		}

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				var msg any
				select {
				case env, ok := <-out:
					if !ok {
						// dropped by the lobby as too slow, or the lobby stopped
						conn.Close(websocket.StatusTryAgainLater, "fell behind")
						return
					}
					msg = env
				case reply := <-replies:
					msg = reply
				case <-writeCtx.Done():
					return
				}
				payload, err := json.Marshal(msg)
				if err != nil {
					clog.Error("encode message", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
		}()

		c := &client{svc: svc, p: p, sessionID: sessionID, log: clog}

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				send(replies, types.ServerMessage{Type: "error", Code: "bad_json", Error: "bad json"})
				continue
			}
			if reply := c.handle(r.Context(), cm); reply != nil {
				send(replies, *reply)
			}
		}
	}
}

// send drops the reply if the writer is backed up.
func send(replies chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case replies <- msg:
	default:
	}
}
