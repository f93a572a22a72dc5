package ws

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/draft"
	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/internal/store"
	"github.com/DoyleJ11/draftroom/internal/types"
)

type client struct {
	svc       *draft.Service
	p         store.Participant
	sessionID string
	log       *zap.Logger
}

// handle runs one client message and returns the reply for that client, if any.
func (c *client) handle(ctx context.Context, cm types.ClientMessage) *types.ServerMessage {
	if cm.Type == "ping" {
		return &types.ServerMessage{Type: "pong"}
	}
	if c.p.ID == "" {
		return errorReply(draft.ErrForbidden)
	}

	switch cm.Type {
	case "ban", "pick":
		g, err := c.svc.GetGame(ctx, cm.GameID)
		if err != nil {
			return c.fail(cm, err)
		}
		if cm.ActionIndex == nil {
			return errorReply(fmt.Errorf("action_index is required: %w", draft.ErrInvalidInput))
		}
		g, err = c.svc.SubmitAction(ctx, g.ID, draft.Submission{
			ActionIndex: *cm.ActionIndex,
			Action:      engine.Action(cm.Type),
			Side:        c.side(g, cm.Side),
			ChampionID:  cm.ChampionID,
			PerformedBy: c.p.ID,
		})
		return c.result(cm, g, err)

	case "timeout":
		g, err := c.svc.GetGame(ctx, cm.GameID)
		if err != nil {
			return c.fail(cm, err)
		}
		index := g.ActionIndex
		if cm.ActionIndex != nil {
			index = *cm.ActionIndex
		}
		g, err = c.svc.ApplyTimeout(ctx, g.ID, index, c.p.ID)
		return c.result(cm, g, err)

	case "hover":
		g, err := c.svc.GetGame(ctx, cm.GameID)
		if err != nil {
			return c.fail(cm, err)
		}
		return c.fail(cm, c.svc.Hover(ctx, g.ID, c.side(g, cm.Side), cm.ChampionID, c.p.ID))

	case "chat":
		_, err := c.svc.SendChat(ctx, c.sessionID, c.p.ID, cm.Body)
		return c.fail(cm, err)

	case "ready":
		ready := cm.Ready == nil || *cm.Ready
		_, err := c.svc.SetReady(ctx, c.sessionID, c.p.Team, ready, c.p.ID)
		return c.fail(cm, err)

	case "side":
		var err error
		if cm.Side == "" {
			_, err = c.svc.ReleaseSide(ctx, c.sessionID, c.p.Team, c.p.ID)
		} else {
			_, err = c.svc.ChooseSide(ctx, c.sessionID, c.p.Team, engine.Side(cm.Side), c.p.ID)
		}
		return c.fail(cm, err)

	default:
		return &types.ServerMessage{Type: "error", Code: "unknown_type", Error: "unknown type"}
	}
}

// side is the side the client asked for, or the side its team holds in g.
func (c *client) side(g engine.Game, requested string) engine.Side {
	if requested != "" {
		return engine.Side(requested)
	}
	return g.SideOfTeam(c.p.Team)
}

// result turns a lost race into a silent resync with the authoritative game.
func (c *client) result(cm types.ClientMessage, g engine.Game, err error) *types.ServerMessage {
	if err != nil && engine.IsRace(err) {
		snap := realtime.GameSnapshot(g)
		return &types.ServerMessage{Type: "resync", Game: &snap}
	}
	return c.fail(cm, err)
}

func (c *client) fail(cm types.ClientMessage, err error) *types.ServerMessage {
	if err == nil {
		return nil
	}
	if engine.IsRace(err) {
		return nil
	}
	if !draft.IsRuleViolation(err) && draft.ErrorCode(err) != "not_found" {
		c.log.Error("client message failed", zap.String("type", cm.Type), zap.Error(err))
		return &types.ServerMessage{Type: "error", Code: "internal", Error: "internal error"}
	}
	return errorReply(err)
}

func errorReply(err error) *types.ServerMessage {
	return &types.ServerMessage{Type: "error", Code: draft.ErrorCode(err), Error: err.Error()}
}
