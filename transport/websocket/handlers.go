package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
)

var errBadPayload = errors.New("invalid payload")

func (that *Server) handleState(ctx context.Context, c *client, _ *Payload) (*entity.Session, error) {
	session, err := that.uSession.Get(ctx, c.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *Server) handleApplyMove(ctx context.Context, c *client, payload *Payload) (*entity.Session, error) {
	if payload.Index == nil {
		return nil, fmt.Errorf("%w: index is required", errBadPayload)
	}

	session, err := that.uSession.ApplyMove(ctx, c.sessionID, *payload.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	return session, nil
}

func (that *Server) handleJumpTo(ctx context.Context, c *client, payload *Payload) (*entity.Session, error) {
	if payload.Step == nil {
		return nil, fmt.Errorf("%w: step is required", errBadPayload)
	}

	session, err := that.uSession.JumpTo(ctx, c.sessionID, *payload.Step)
	if err != nil {
		return nil, fmt.Errorf("failed to jump: %w", err)
	}

	return session, nil
}

func (that *Server) handleSetOrder(ctx context.Context, c *client, payload *Payload) (*entity.Session, error) {
	if payload.Ascending == nil {
		return nil, fmt.Errorf("%w: ascending is required", errBadPayload)
	}

	session, err := that.uSession.SetSortOrder(ctx, c.sessionID, *payload.Ascending)
	if err != nil {
		return nil, fmt.Errorf("failed to set order: %w", err)
	}

	return session, nil
}
