package entity

import "fmt"

// Mark is the content of a board cell.
type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

const (
	BoardColumns = 3
	BoardRows    = 3
	BoardSize    = BoardColumns * BoardRows
)

type StatusKind string

const (
	StatusUndecided StatusKind = "undecided"
	StatusWon       StatusKind = "won"
	StatusDraw      StatusKind = "draw"
)

// Board is a row-major 3x3 grid.
type Board [BoardSize]Mark

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// Position is the 1-indexed (column, row) of a cell. The zero value means "no position".
type Position struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// PositionOf converts a linear board index into its (column, row) position.
func PositionOf(index int) Position {
	return Position{
		Column: index%BoardColumns + 1,
		Row:    index/BoardColumns + 1,
	}
}

func (that Position) IsSet() bool {
	return that.Column > 0 && that.Row > 0
}

func (that Position) String() string {
	return fmt.Sprintf("(%d,%d)", that.Column, that.Row)
}

// MoveRecord is one history entry: the full board after a move, not a diff.
type MoveRecord struct {
	SequenceNumber int      `json:"sequence_number"`
	Board          Board    `json:"board"`
	LastPlayer     Mark     `json:"last_player,omitempty"`
	Position       Position `json:"position"`
	WinningCells   []int    `json:"winning_cells,omitempty"`
	Winner         Mark     `json:"winner,omitempty"`
}

func (that MoveRecord) Clone() MoveRecord {
	if that.WinningCells != nil {
		that.WinningCells = append([]int(nil), that.WinningCells...)
	}

	return that
}

// Game is the engine state: the whole move history plus the cursor into it.
// The player to move is derived from the cursor and never stored.
type Game struct {
	History    []MoveRecord `json:"history"`
	StepNumber int          `json:"step_number"`
}

// Current returns the record the cursor points at.
func (that Game) Current() MoveRecord {
	return that.History[that.StepNumber]
}

// NextPlayer returns the mark placed by the next move from the cursor.
func (that Game) NextPlayer() Mark {
	if that.StepNumber%2 == 0 {
		return PlayerX
	}

	return PlayerO
}

// Clone returns a deep copy sharing no slices with the receiver.
func (that Game) Clone() Game {
	history := make([]MoveRecord, 0, len(that.History))
	for _, record := range that.History {
		history = append(history, record.Clone())
	}

	return Game{History: history, StepNumber: that.StepNumber}
}

// Status is the derived outcome at the cursor. Player is the next player while
// undecided and the winner once won; it is empty on a draw.
type Status struct {
	Kind         StatusKind `json:"kind"`
	Player       Mark       `json:"player,omitempty"`
	WinningCells []int      `json:"winning_cells,omitempty"`
}

func (that Status) IsDecided() bool {
	return that.Kind == StatusWon || that.Kind == StatusDraw
}

// HistoryEntry is the read-only projection of a MoveRecord used to render a move list.
type HistoryEntry struct {
	SequenceNumber int      `json:"sequence_number"`
	LastPlayer     Mark     `json:"last_player,omitempty"`
	Position       Position `json:"position"`
	IsCurrent      bool     `json:"is_current"`
}

// Description is the move-list label of the entry.
func (that HistoryEntry) Description() string {
	if that.SequenceNumber == 0 {
		return "Go to game start"
	}

	return fmt.Sprintf("Go to move #%d ⇒ %s: %s", that.SequenceNumber, that.LastPlayer, that.Position)
}
