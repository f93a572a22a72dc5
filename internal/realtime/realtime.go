// Package realtime maps draft state transitions to session-channel events and folds those
// events back into a local view.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/draftroom/pkg/types"
)

var ErrUnknownEvent = errors.New("unknown event type")

// ErrOutOfSync means the view missed an event and must be reloaded from a snapshot.
var ErrOutOfSync = errors.New("projection out of sync")

type Envelope struct {
	Type      types.EventType `json:"type"`
	SessionID string          `json:"session_id"`
	Payload   any             `json:"payload"`
}

// Publisher fans an envelope out to everyone subscribed to its session. Publish must not block.
type Publisher interface {
	Publish(env Envelope)
}

type PublisherFunc func(env Envelope)

func (f PublisherFunc) Publish(env Envelope) { f(env) }

// Discard drops every envelope.
var Discard Publisher = PublisherFunc(func(Envelope) {})

// DecodeEnvelope parses a wire envelope into its typed payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var raw struct {
		Type      types.EventType `json:"type"`
		SessionID string          `json:"session_id"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, err
	}

	env := Envelope{Type: raw.Type, SessionID: raw.SessionID}
	var err error
	switch raw.Type {
	case types.EventDraftAction:
		env.Payload, err = decodeAs[types.DraftActionEvent](raw.Payload)
	case types.EventHover:
		env.Payload, err = decodeAs[types.HoverEvent](raw.Payload)
	case types.EventTimer:
		env.Payload, err = decodeAs[types.TimerEvent](raw.Payload)
	case types.EventGameState:
		env.Payload, err = decodeAs[types.GameStateEvent](raw.Payload)
	case types.EventSessionState:
		env.Payload, err = decodeAs[types.SessionStateEvent](raw.Payload)
	case types.EventChat:
		env.Payload, err = decodeAs[types.ChatMessageEvent](raw.Payload)
	case types.EventPresence:
		env.Payload, err = decodeAs[types.PresenceState](raw.Payload)
	default:
		return env, fmt.Errorf("%q: %w", raw.Type, ErrUnknownEvent)
	}
	if err != nil {
		return env, fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	return env, nil
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
