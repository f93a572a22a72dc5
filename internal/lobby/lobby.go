package lobby

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/pkg/types"
)

type Msg interface{ isLobbyMsg() }

type Join struct {
	ClientID string
	Outbox   chan realtime.Envelope // where this client wants to receive events
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Publish struct {
	Envelope realtime.Envelope
}

func (Publish) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	SessionID  string
	NumClients int
	Published  int
}

// Lobby is the broadcast channel of one session. It keeps the latest session, game and
// presence envelopes so a client that joins late starts from the current state.
type Lobby struct {
	sessionID string
	inbox     chan Msg
	clients   map[string]chan realtime.Envelope
	published int
	session   *realtime.Envelope
	games     map[string]realtime.Envelope
	presence  map[string]realtime.Envelope
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewLobby(parent context.Context, sessionID string, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		sessionID: sessionID,
		inbox:     make(chan Msg, 64), // Small buffer
		clients:   make(map[string]chan realtime.Envelope),
		games:     make(map[string]realtime.Envelope),
		presence:  make(map[string]realtime.Envelope),
		log:       log.With(zap.String("session_id", sessionID)),
		ctx:       ctx,
		cancel:    cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				for _, env := range l.replay() {
					if !l.deliver(msg.ClientID, msg.Outbox, env) {
						break
					}
				}

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case Publish:
				l.remember(msg.Envelope)
				l.published++
				l.broadcast(msg.Envelope)

			case GetState:
				msg.Reply <- View{
					SessionID:  l.sessionID,
					NumClients: len(l.clients),
					Published:  l.published,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) remember(env realtime.Envelope) {
	switch ev := env.Payload.(type) {
	case types.SessionStateEvent:
		l.session = &env
	case types.GameStateEvent:
		l.games[ev.GameID] = env
	case types.PresenceState:
		l.presence[ev.ParticipantID] = env
	}
}

// replay lists the remembered state: session first, then games by number, then presence.
func (l *Lobby) replay() []realtime.Envelope {
	var out []realtime.Envelope
	if l.session != nil {
		out = append(out, *l.session)
	}

	games := make([]realtime.Envelope, 0, len(l.games))
	for _, env := range l.games {
		games = append(games, env)
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].Payload.(types.GameStateEvent).GameNumber < games[j].Payload.(types.GameStateEvent).GameNumber
	})
	out = append(out, games...)

	ids := make([]string, 0, len(l.presence))
	for id := range l.presence {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, l.presence[id])
	}
	return out
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more events
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(env realtime.Envelope) {
	for id, ch := range l.clients {
		l.deliver(id, ch, env)
	}
}

// deliver drops the client when its outbox is full.
func (l *Lobby) deliver(id string, ch chan realtime.Envelope, env realtime.Envelope) bool {
	select {
	case ch <- env:
		return true
	default:
		l.log.Debug("dropping slow client", zap.String("client_id", id))
		close(ch)
		delete(l.clients, id)
		return false
	}
}

// Send queues m unless the lobby has stopped.
func (l *Lobby) Send(m Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }
