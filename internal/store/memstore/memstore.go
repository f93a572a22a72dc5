// Package memstore is an in-process store.Store. It backs tests and single-node runs without
// a database; transactions are serialised and applied atomically on success.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/store"
)

type data struct {
	sessions     map[string]engine.Session
	games        map[string]engine.Game
	actions      map[string][]engine.ActionRecord
	unavailable  map[string][]engine.UnavailableChampion
	participants map[string]store.Participant
	messages     map[string][]store.Message
}

func newData() *data {
	return &data{
		sessions:     map[string]engine.Session{},
		games:        map[string]engine.Game{},
		actions:      map[string][]engine.ActionRecord{},
		unavailable:  map[string][]engine.UnavailableChampion{},
		participants: map[string]store.Participant{},
		messages:     map[string][]store.Message{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.sessions {
		c.sessions[k] = v
	}
	for k, v := range d.games {
		c.games[k] = v
	}
	for k, v := range d.actions {
		c.actions[k] = append([]engine.ActionRecord(nil), v...)
	}
	for k, v := range d.unavailable {
		c.unavailable[k] = append([]engine.UnavailableChampion(nil), v...)
	}
	for k, v := range d.participants {
		c.participants[k] = v
	}
	for k, v := range d.messages {
		c.messages[k] = append([]store.Message(nil), v...)
	}
	return c
}

type Store struct {
	mu sync.Mutex
	d  *data
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: newData()}
}

func (m *Store) CreateSession(_ context.Context, s engine.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.d.sessions[s.ID]; ok {
		return fmt.Errorf("session %s: %w", s.ID, store.ErrConflict)
	}
	for _, other := range m.d.sessions {
		if s.InviteToken != "" && other.InviteToken == s.InviteToken {
			return fmt.Errorf("invite %s: %w", s.InviteToken, store.ErrConflict)
		}
	}
	m.d.sessions[s.ID] = s
	return nil
}

func (m *Store) GetSession(_ context.Context, id string) (engine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.d.sessions[id]
	if !ok {
		return engine.Session{}, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (m *Store) GetSessionByInvite(_ context.Context, token string) (engine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.d.sessions {
		if s.InviteToken == token {
			return s, nil
		}
	}
	return engine.Session{}, fmt.Errorf("invite %s: %w", token, store.ErrNotFound)
}

func (m *Store) UpdateSession(_ context.Context, s engine.Session) (engine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.d.sessions[s.ID]
	if !ok {
		return s, fmt.Errorf("session %s: %w", s.ID, store.ErrNotFound)
	}
	if cur.Version != s.Version {
		return cur, engine.ErrStaleWrite
	}
	s.Version++
	m.d.sessions[s.ID] = s
	return s, nil
}

func (m *Store) CreateGame(_ context.Context, g engine.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.d.games[g.ID]; ok {
		return fmt.Errorf("game %s: %w", g.ID, store.ErrConflict)
	}
	for _, other := range m.d.games {
		if other.SessionID == g.SessionID && other.Number == g.Number {
			return fmt.Errorf("game %d of session %s: %w", g.Number, g.SessionID, store.ErrConflict)
		}
	}
	m.d.games[g.ID] = g
	return nil
}

func (m *Store) GetGame(_ context.Context, id string) (engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.d.games[id]
	if !ok {
		return engine.Game{}, fmt.Errorf("game %s: %w", id, store.ErrNotFound)
	}
	return g, nil
}

func (m *Store) GetGameByNumber(_ context.Context, sessionID string, number int) (engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.d.games {
		if g.SessionID == sessionID && g.Number == number {
			return g, nil
		}
	}
	return engine.Game{}, fmt.Errorf("game %d of session %s: %w", number, sessionID, store.ErrNotFound)
}

func (m *Store) ListGames(_ context.Context, sessionID string) ([]engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []engine.Game
	for _, g := range m.d.games {
		if g.SessionID == sessionID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Store) ListDraftingGames(_ context.Context) ([]engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []engine.Game
	for _, g := range m.d.games {
		if g.Status != engine.GameDrafting {
			continue
		}
		switch m.d.sessions[g.SessionID].Status {
		case engine.SessionInProgress, engine.SessionPaused:
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) UpdateGame(_ context.Context, g engine.Game) (engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.d.games[g.ID]
	if !ok {
		return g, fmt.Errorf("game %s: %w", g.ID, store.ErrNotFound)
	}
	if cur.Version != g.Version {
		return cur, engine.ErrStaleWrite
	}
	g.Version++
	m.d.games[g.ID] = g
	return g, nil
}

func (m *Store) CommitAction(_ context.Context, g engine.Game, a engine.ActionRecord) (engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.d.games[g.ID]
	if !ok {
		return g, fmt.Errorf("game %s: %w", g.ID, store.ErrNotFound)
	}
	if cur.Status != engine.GameDrafting || cur.ActionIndex != a.Index {
		return cur, engine.ErrStaleWrite
	}
	for _, existing := range m.d.actions[g.ID] {
		if existing.Index == a.Index {
			return cur, engine.ErrSlotAlreadyFilled
		}
	}
	g.Version = cur.Version + 1
	m.d.games[g.ID] = g
	m.d.actions[g.ID] = append(m.d.actions[g.ID], a)
	return g, nil
}

func (m *Store) ListActions(_ context.Context, gameID string) ([]engine.ActionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.ActionRecord(nil), m.d.actions[gameID]...), nil
}

func (m *Store) AppendUnavailable(_ context.Context, recs []engine.UnavailableChampion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.d.unavailable[r.SessionID] = append(m.d.unavailable[r.SessionID], r)
	}
	return nil
}

func (m *Store) ListUnavailable(_ context.Context, sessionID string) ([]engine.UnavailableChampion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.UnavailableChampion(nil), m.d.unavailable[sessionID]...), nil
}

func (m *Store) UpsertParticipant(_ context.Context, p store.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.participants[p.ID] = p
	return nil
}

func (m *Store) GetParticipant(_ context.Context, id string) (store.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.d.participants[id]
	if !ok {
		return store.Participant{}, fmt.Errorf("participant %s: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (m *Store) ListParticipants(_ context.Context, sessionID string) ([]store.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Participant
	for _, p := range m.d.participants {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *Store) AppendMessage(_ context.Context, msg store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.messages[msg.SessionID] = append(m.d.messages[msg.SessionID], msg)
	return nil
}

func (m *Store) ListMessages(_ context.Context, sessionID string, limit int) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.d.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]store.Message(nil), msgs...), nil
}

// InTx holds the store lock for the whole of fn; fn must only use tx.
func (m *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &Store{d: m.d.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.d = tx.d
	return nil
}
