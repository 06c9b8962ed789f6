package tictactoe

import "github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"

// WinCombos are the lines of any 3x3 grid: rows, columns, diagonals.
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

// Outcome is the decided state of a 3x3 grid. Winner is NoSymbol while the
// grid is undecided; Line is only set on a decisive win.
type Outcome struct {
	Winner entity.Symbol
	Line   []int
}

func (that Outcome) IsDecided() bool {
	return that.Winner != entity.NoSymbol
}

// CheckOutcome evaluates nine cells. The same function serves local boards and
// the global board, whose cells are local outcomes; a drawn cell never counts
// toward a line.
func CheckOutcome(cells [entity.BoardSize]entity.Symbol) Outcome {
	for _, combo := range WinCombos {
		a, b, c := cells[combo[0]], cells[combo[1]], cells[combo[2]]
		if a.IsPlayer() && a == b && b == c {
			return Outcome{Winner: a, Line: []int{combo[0], combo[1], combo[2]}}
		}
	}

	// the grid stays open until every cell is filled
	for _, cell := range cells {
		if cell == entity.NoSymbol {
			return Outcome{}
		}
	}

	return Outcome{Winner: entity.SymbolDraw}
}
