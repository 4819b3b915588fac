package snake

import "github.com/hoshinonyaruko/snake-in-browser/structs"

// Step returns the index one cell away from index in direction d on a
// size×size grid. Leaving the top or bottom edge re-enters on the opposite
// row; leaving the left or right edge re-enters on the same row.
func Step(size, index int, d structs.Direction) int {
	total := size * size
	switch d {
	case structs.Up:
		index -= size
		if index < 0 {
			index += total // 穿过上边界到最后一行
		}
	case structs.Down:
		index += size
		if index >= total {
			index -= total // 穿过下边界到第一行
		}
	case structs.Left:
		if index%size == 0 {
			index += size - 1 // 留在同一行的最右边
		} else {
			index--
		}
	case structs.Right:
		if (index+1)%size == 0 {
			index -= size - 1 // 留在同一行的最左边
		} else {
			index++
		}
	}
	return index
}

// Adjacent reports whether b is one step from a under wrap-around.
func Adjacent(size, a, b int) bool {
	for _, d := range structs.Directions {
		if Step(size, a, d) == b {
			return true
		}
	}
	return false
}

// RowCol splits an index into row and column.
func RowCol(size, index int) (int, int) {
	return index / size, index % size
}
