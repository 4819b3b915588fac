package snake

import (
	"fmt"

	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

// State returns a copy of the engine state suitable for storage.
func (e *Engine) State() structs.GameState {
	return structs.GameState{
		Size:      e.size,
		Body:      e.Body(),
		Direction: e.direction,
		Moving:    e.moving,
		Food:      e.food,
		Score:     e.score,
		Status:    e.status,
	}
}

// Restore builds an engine from a saved state. An empty Moving is taken to
// be the same as Direction.
func Restore(st structs.GameState, opts ...Option) (*Engine, error) {
	if st.Moving == "" {
		st.Moving = st.Direction
	}
	if err := Validate(st); err != nil {
		return nil, err
	}

	e := newEngine(st.Size, opts)
	n := len(st.Body)
	e.segs = make([]int, n)
	for i, index := range st.Body {
		e.segs[n-1-i] = index
		e.occupied[index] = true
	}
	e.direction = st.Direction
	e.moving = st.Moving
	e.food = st.Food
	e.score = st.Score
	e.status = st.Status
	return e, nil
}

// Validate checks that st describes a reachable board.
func Validate(st structs.GameState) error {
	if st.Size < MinGridSize {
		return fmt.Errorf("%w: %d < %d", ErrGridTooSmall, st.Size, MinGridSize)
	}
	total := st.Size * st.Size

	if len(st.Body) == 0 || len(st.Body) > total {
		return fmt.Errorf("%w: body length %d", ErrInvalidState, len(st.Body))
	}
	seen := make(map[int]bool, len(st.Body))
	for i, index := range st.Body {
		if index < 0 || index >= total {
			return fmt.Errorf("%w: body cell %d out of range", ErrInvalidState, index)
		}
		if seen[index] {
			return fmt.Errorf("%w: body cell %d repeated", ErrInvalidState, index)
		}
		seen[index] = true
		if i > 0 && !Adjacent(st.Size, st.Body[i-1], index) {
			return fmt.Errorf("%w: body cells %d and %d are not adjacent", ErrInvalidState, st.Body[i-1], index)
		}
	}

	if !st.Direction.Valid() || !st.Moving.Valid() {
		return fmt.Errorf("%w: direction %q moving %q", ErrInvalidState, st.Direction, st.Moving)
	}
	if !st.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidState, st.Status)
	}
	if st.Score < 0 {
		return fmt.Errorf("%w: score %d", ErrInvalidState, st.Score)
	}

	// 结束的游戏可能没有食物（地图已满）
	if st.Status == structs.Over && st.Food == -1 {
		return nil
	}
	if st.Food < 0 || st.Food >= total {
		return fmt.Errorf("%w: food %d out of range", ErrInvalidState, st.Food)
	}
	if seen[st.Food] && st.Status != structs.Over {
		return fmt.Errorf("%w: food %d under the snake", ErrInvalidState, st.Food)
	}
	return nil
}
