package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/lobby"
	"github.com/DoyleJ11/draftroom/internal/realtime"
)

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	SessionID string
	Reply     chan *lobby.Lobby
}

type EnsureLobby struct {
	SessionID string
	Reply     chan *lobby.Lobby
}

// JoinLobby subscribes a client to the session's lobby, starting one if needed. Joining
// through the hub orders it against ReleaseLobby, so a client never lands in a lobby that is
// being stopped.
type JoinLobby struct {
	SessionID string
	ClientID  string
	Outbox    chan realtime.Envelope
	Reply     chan *lobby.Lobby
}

// ReleaseLobby stops the session's lobby if nobody is subscribed to it any more.
type ReleaseLobby struct {
	SessionID string
}

type Forward struct {
	Envelope realtime.Envelope
}

type ShutdownHub struct{}

func (GetLobby) isHubMsg()     {}
func (EnsureLobby) isHubMsg()  {}
func (JoinLobby) isHubMsg()    {}
func (ReleaseLobby) isHubMsg() {}
func (Forward) isHubMsg()      {}
func (ShutdownHub) isHubMsg()  {}

// Hub owns one lobby per session with live subscribers.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ realtime.Publisher = (*Hub)(nil)

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		lobbies: make(map[string]*lobby.Lobby),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Publish hands env to the session's lobby. Sessions nobody watches drop it.
func (h *Hub) Publish(env realtime.Envelope) {
	select {
	case h.inbox <- Forward{Envelope: env}:
	case <-h.ctx.Done():
	}
}

// Lobby returns the session's lobby, starting one if needed. It returns nil once the hub stopped.
func (h *Hub) Lobby(sessionID string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- EnsureLobby{SessionID: sessionID, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	select {
	case lb := <-reply:
		return lb
	case <-h.ctx.Done():
		return nil
	}
}

// Join subscribes out to the session's lobby and returns it, or nil once the hub stopped.
func (h *Hub) Join(sessionID, clientID string, out chan realtime.Envelope) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- JoinLobby{SessionID: sessionID, ClientID: clientID, Outbox: out, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	select {
	case lb := <-reply:
		return lb
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) Release(sessionID string) {
	select {
	case h.inbox <- ReleaseLobby{SessionID: sessionID}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.live(msg.SessionID) // May be nil

			case EnsureLobby:
				msg.Reply <- h.ensure(msg.SessionID)

			case JoinLobby:
				lb := h.ensure(msg.SessionID)
				if !lb.Send(lobby.Join{ClientID: msg.ClientID, Outbox: msg.Outbox}) {
					lb = nil
				}
				msg.Reply <- lb

			case Forward:
				if lb := h.live(msg.Envelope.SessionID); lb != nil {
					lb.Send(lobby.Publish{Envelope: msg.Envelope})
				}

			case ReleaseLobby:
				lb := h.live(msg.SessionID)
				if lb == nil {
					break
				}
				reply := make(chan lobby.View, 1)
				if !lb.Send(lobby.GetState{Reply: reply}) {
					break
				}
				select {
				case view := <-reply:
					if view.NumClients > 0 {
						break
					}
					lb.Send(lobby.Shutdown{})
					delete(h.lobbies, msg.SessionID)
					h.log.Debug("lobby released", zap.String("session_id", msg.SessionID))
				case <-lb.Done():
					delete(h.lobbies, msg.SessionID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) ensure(sessionID string) *lobby.Lobby {
	if lb := h.live(sessionID); lb != nil {
		return lb
	}
	lb := lobby.NewLobby(h.ctx, sessionID, h.log)
	h.lobbies[sessionID] = lb
	return lb
}

// live returns the session's lobby unless it has already stopped.
func (h *Hub) live(sessionID string) *lobby.Lobby {
	lb := h.lobbies[sessionID]
	if lb == nil {
		return nil
	}
	select {
	case <-lb.Done():
		delete(h.lobbies, sessionID)
		return nil
	default:
		return lb
	}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Send(lobby.Shutdown{})
	}
	clear(h.lobbies)
	h.cancel()
}
