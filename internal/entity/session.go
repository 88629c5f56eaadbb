package entity

import "time"

// Session is one hosted game together with the viewer's move-list order.
// Ascending is a display preference and has no effect on Game.
type Session struct {
	ID        string    `json:"id"`
	Game      Game      `json:"game"`
	Ascending bool      `json:"ascending"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string, game Game, now time.Time) *Session {
	return &Session{
		ID:        id,
		Game:      game,
		Ascending: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (that *Session) Clone() *Session {
	cp := *that
	cp.Game = that.Game.Clone()

	return &cp
}
