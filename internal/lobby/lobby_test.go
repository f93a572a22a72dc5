package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/pkg/types"
)

// helper: receive one envelope with a timeout so tests never hang
func recvEnvelope(t *testing.T, ch <-chan realtime.Envelope, within time.Duration) realtime.Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return env
	case <-time.After(within):
		t.Fatalf("timed out waiting for envelope")
		return realtime.Envelope{} // unreachable
	}
}

func recvNoEnvelope(t *testing.T, ch <-chan realtime.Envelope, within time.Duration) {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further events possible
			return
		}
		t.Fatalf("expected no envelope within %v, but got: %+v", within, env)
	case <-time.After(within):
		// good: nothing
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func gameState(id string, number, version int) realtime.Envelope {
	return realtime.Envelope{
		Type:      types.EventGameState,
		SessionID: "s1",
		Payload:   types.GameStateEvent{GameID: id, GameNumber: number, Version: version},
	}
}

func TestLobby_PublishBroadcastsToEveryClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "s1", nil)

	a := make(chan realtime.Envelope, 2)
	b := make(chan realtime.Envelope, 2)
	l.Inbox() <- Join{ClientID: "a", Outbox: a}
	l.Inbox() <- Join{ClientID: "b", Outbox: b}

	l.Inbox() <- Publish{Envelope: gameState("g1", 1, 1)}

	for _, ch := range []chan realtime.Envelope{a, b} {
		env := recvEnvelope(t, ch, 100*time.Millisecond)
		if env.Type != types.EventGameState {
			t.Fatalf("want game_state, got %s", env.Type)
		}
	}

	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if view.NumClients != 2 || view.Published != 1 {
		t.Fatalf("unexpected view %+v", view)
	}

	l.Inbox() <- Shutdown{}
}

func TestLobby_LateJoinerGetsLatestState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "s1", nil)
	l.Inbox() <- Publish{Envelope: gameState("g2", 2, 1)}
	l.Inbox() <- Publish{Envelope: gameState("g1", 1, 4)}
	l.Inbox() <- Publish{Envelope: gameState("g1", 1, 5)}
	l.Inbox() <- Publish{Envelope: realtime.Envelope{
		Type:      types.EventSessionState,
		SessionID: "s1",
		Payload:   types.SessionStateEvent{SessionID: "s1", CurrentGame: 2},
	}}
	l.Inbox() <- Publish{Envelope: realtime.Envelope{
		Type:      types.EventHover,
		SessionID: "s1",
		Payload:   types.HoverEvent{GameID: "g2", ChampionID: "Ahri"},
	}}

	out := make(chan realtime.Envelope, 8)
	l.Inbox() <- Join{ClientID: "late", Outbox: out}

	first := recvEnvelope(t, out, 100*time.Millisecond)
	if first.Type != types.EventSessionState {
		t.Fatalf("want session_state first, got %s", first.Type)
	}
	g1 := recvEnvelope(t, out, 100*time.Millisecond).Payload.(types.GameStateEvent)
	if g1.GameID != "g1" || g1.Version != 5 {
		t.Fatalf("want latest g1 snapshot, got %+v", g1)
	}
	g2 := recvEnvelope(t, out, 100*time.Millisecond).Payload.(types.GameStateEvent)
	if g2.GameID != "g2" {
		t.Fatalf("want g2 second, got %+v", g2)
	}
	// hovers are ephemeral and not replayed
	recvNoEnvelope(t, out, 50*time.Millisecond)

	l.Inbox() <- Shutdown{}
}

func TestLobby_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "s1", nil)

	clientOut := make(chan realtime.Envelope, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	l.Inbox() <- Publish{Envelope: gameState("g1", 1, 1)}
	l.Inbox() <- Publish{Envelope: gameState("g1", 1, 2)}

	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestLobby_LeaveClosesOutbox(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "s1", nil)
	out := make(chan realtime.Envelope, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	l.Inbox() <- Leave{ClientID: "c1"}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("outbox not closed after leave")
	}
}

func TestLobby_ShutdownStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, "s1", nil)

	out := make(chan realtime.Envelope, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	l.Inbox() <- Shutdown{}

	select {
	case <-l.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("lobby did not stop")
	}
	// the buffered inbox may still accept this; nothing reads it any more
	_ = l.Send(Publish{Envelope: gameState("g1", 1, 1)})
	recvNoEnvelope(t, out, 100*time.Millisecond)
}
