// Package tictactoe holds the rules of the game as pure functions over entity.Game.
// A transition never mutates its input; it returns a new game value.
package tictactoe

import (
	"fmt"
	"slices"

	"github.com/rocketscienceinc/timetravel-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/timetravel-tictactoe/internal/entity"
)

// WinCombos lists the lines of the board in the order they are checked.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluation is the result of checking a single board.
type Evaluation struct {
	Winner       entity.Mark
	WinningCells []int
	Draw         bool
}

func (that Evaluation) IsDecided() bool {
	return that.Winner != entity.EmptyCell || that.Draw
}

// NewGame returns a game holding only the empty start record.
func NewGame() entity.Game {
	return entity.Game{
		History:    []entity.MoveRecord{{SequenceNumber: 0}},
		StepNumber: 0,
	}
}

// ApplyMove places the next player's mark at index on the board under the cursor.
// Records after the cursor are discarded before the new one is appended.
// Moves on a decided board or an occupied cell return an unchanged copy.
// index must be in [0, entity.BoardSize).
func ApplyMove(game entity.Game, index int) entity.Game {
	if index < 0 || index >= entity.BoardSize {
		panic(fmt.Sprintf("tictactoe: cell index %d out of range [0, %d)", index, entity.BoardSize))
	}

	current := game.Current()
	if Evaluate(current.Board).IsDecided() || current.Board[index] != entity.EmptyCell {
		return game.Clone()
	}

	mark := game.NextPlayer()
	board := current.Board
	board[index] = mark
	evaluation := Evaluate(board)

	active := game.History[:game.StepNumber+1]
	history := make([]entity.MoveRecord, 0, len(active)+1)
	for _, record := range active {
		history = append(history, record.Clone())
	}

	record := entity.MoveRecord{
		SequenceNumber: len(active),
		Board:          board,
		LastPlayer:     mark,
		Position:       entity.PositionOf(index),
		WinningCells:   evaluation.WinningCells,
		Winner:         evaluation.Winner,
	}

	return entity.Game{
		History:    append(history, record),
		StepNumber: record.SequenceNumber,
	}
}

// JumpTo moves the cursor to step without touching the history.
func JumpTo(game entity.Game, step int) (entity.Game, error) {
	if step < 0 || step >= len(game.History) {
		return game.Clone(), fmt.Errorf("%w: %d not in [0, %d)", apperror.ErrInvalidStep, step, len(game.History))
	}

	jumped := game.Clone()
	jumped.StepNumber = step

	return jumped, nil
}

// Evaluate checks every line of board. Each complete line adds its cells to the
// winning set and overwrites the winner, so with several complete lines of
// different marks the last one in WinCombos order wins.
func Evaluate(board entity.Board) Evaluation {
	var (
		result  Evaluation
		winning [entity.BoardSize]bool
	)

	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			for _, index := range combo {
				winning[index] = true
			}
			result.Winner = a
		}
	}

	for index, isWinning := range winning {
		if isWinning {
			result.WinningCells = append(result.WinningCells, index)
		}
	}

	// a full board only counts as a draw when nobody has a line
	if result.Winner == entity.EmptyCell && board.IsFull() {
		result.Draw = true
	}

	return result
}

// GetStatus reports the outcome of the record under the cursor.
func GetStatus(game entity.Game) entity.Status {
	evaluation := Evaluate(game.Current().Board)

	switch {
	case evaluation.Winner != entity.EmptyCell:
		return entity.Status{
			Kind:         entity.StatusWon,
			Player:       evaluation.Winner,
			WinningCells: evaluation.WinningCells,
		}
	case evaluation.Draw:
		return entity.Status{Kind: entity.StatusDraw}
	default:
		return entity.Status{Kind: entity.StatusUndecided, Player: game.NextPlayer()}
	}
}

// HistoryView projects the history for a move list, oldest first when ascending.
func HistoryView(game entity.Game, ascending bool) []entity.HistoryEntry {
	entries := make([]entity.HistoryEntry, 0, len(game.History))
	for _, record := range game.History {
		entries = append(entries, entity.HistoryEntry{
			SequenceNumber: record.SequenceNumber,
			LastPlayer:     record.LastPlayer,
			Position:       record.Position,
			IsCurrent:      record.SequenceNumber == game.StepNumber,
		})
	}

	if !ascending {
		slices.Reverse(entries)
	}

	return entries
}
