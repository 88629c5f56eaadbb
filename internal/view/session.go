// Package view renders sessions into the JSON shape shared by the REST and WebSocket transports.
package view

import (
	"time"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/tictactoe"
)

type Session struct {
	ID         string         `json:"id"`
	Board      entity.Board   `json:"board"`
	StepNumber int            `json:"step_number"`
	Ascending  bool           `json:"ascending"`
	Status     entity.Status  `json:"status"`
	History    []HistoryEntry `json:"history"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type HistoryEntry struct {
	SequenceNumber int              `json:"sequence_number"`
	LastPlayer     entity.Mark      `json:"last_player,omitempty"`
	Position       *entity.Position `json:"position,omitempty"`
	IsCurrent      bool             `json:"is_current"`
	Description    string           `json:"description"`
}

// FromSession builds the view of session with its move list in the stored order.
func FromSession(session *entity.Session) Session {
	return FromSessionOrdered(session, session.Ascending)
}

// FromSessionOrdered builds the view of session with an explicit move-list order.
func FromSessionOrdered(session *entity.Session, ascending bool) Session {
	entries := tictactoe.HistoryView(session.Game, ascending)

	history := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		item := HistoryEntry{
			SequenceNumber: entry.SequenceNumber,
			LastPlayer:     entry.LastPlayer,
			IsCurrent:      entry.IsCurrent,
			Description:    entry.Description(),
		}
		if entry.Position.IsSet() {
			position := entry.Position
			item.Position = &position
		}
		history = append(history, item)
	}

	return Session{
		ID:         session.ID,
		Board:      session.Game.Current().Board,
		StepNumber: session.Game.StepNumber,
		Ascending:  ascending,
		Status:     tictactoe.GetStatus(session.Game),
		History:    history,
		UpdatedAt:  session.UpdatedAt,
	}
}
