// 关于蛇的更新：单局游戏引擎
package snake

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang/glog"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

// Engine-related errors.
var (
	ErrGridTooSmall = errors.New("grid size is too small")
	ErrInvalidState = errors.New("invalid game state")
)

const (
	DefaultGridSize = 30 // 默认地图边长
	MinGridSize     = 2  // 至少要能放下蛇头和一个食物

	foodAttempts = 64 // 随机取样的次数，超过后改为枚举空格子
)

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for food placement.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// Engine owns the state of a single game on an N×N wrap-around grid.
// Cells are addressed by index; row = index / N, column = index % N.
//
// Engine does no locking. Callers must make sure only one method runs at a time.
type Engine struct {
	size      int
	segs      []int  // 蛇身，蛇尾在前，蛇头在最后
	occupied  []bool // 与 segs 同步维护，O(1) 判断格子是否被蛇占用
	direction structs.Direction
	moving    structs.Direction // 上一次 tick 实际移动的方向
	food      int               // -1 表示地图已满，没有食物
	score     int
	status    structs.Status
	rng       *rand.Rand
}

// New creates an engine for a size×size grid in its initial state.
func New(size int, opts ...Option) (*Engine, error) {
	if size < MinGridSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrGridTooSmall, size, MinGridSize)
	}
	e := newEngine(size, opts)
	e.Reset()
	return e, nil
}

func newEngine(size int, opts []Option) *Engine {
	e := &Engine{
		size:     size,
		occupied: make([]bool, size*size),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Reset puts the engine back to a fresh game: snake [0] heading right,
// score 0, new food. It is allowed in any status.
func (e *Engine) Reset() {
	clear(e.occupied)
	e.segs = append(e.segs[:0], 0)
	e.occupied[0] = true
	e.direction = structs.Right
	e.moving = structs.Right
	e.score = 0
	e.status = structs.Playing
	if !e.placeFood() {
		e.status = structs.Over
	}
}

// SetDirection sets the direction used by the next Tick. It is ignored when
// the game is not playing, when d is not a direction, or when d would reverse
// the snake. The result reports whether the direction was taken.
func (e *Engine) SetDirection(d structs.Direction) bool {
	if e.status != structs.Playing || !d.Valid() {
		return false
	}
	// 不允许掉头：既不能与上一次实际移动相反，也不能与已接受的方向相反
	if d == e.moving.Opposite() || d == e.direction.Opposite() {
		return false
	}
	e.direction = d
	return true
}

// TogglePause switches between playing and paused. A finished game stays over.
func (e *Engine) TogglePause() {
	switch e.status {
	case structs.Playing:
		e.status = structs.Paused
	case structs.Paused:
		e.status = structs.Playing
	}
}

// Tick advances the snake one cell. It does nothing unless the game is playing.
func (e *Engine) Tick() {
	if e.status != structs.Playing {
		return
	}

	next := Step(e.size, e.Head(), e.direction)

	// 与移动前的蛇身比较，即将离开的蛇尾也算碰撞
	if e.occupied[next] {
		glog.V(2).Infof("snake hit itself at %d, score %d", next, e.score)
		e.status = structs.Over
		return
	}

	e.segs = append(e.segs, next)
	e.occupied[next] = true
	e.moving = e.direction

	if next == e.food {
		e.score++
		if !e.placeFood() {
			// 蛇占满了整个地图
			e.status = structs.Over
		}
		glog.V(2).Infof("ate food at %d, new food %d, score %d", next, e.food, e.score)
		return
	}

	tail := e.segs[0]
	e.segs = e.segs[1:]
	e.occupied[tail] = false
}

// placeFood puts food on a uniformly random cell not covered by the snake.
// It returns false when there is no free cell left.
func (e *Engine) placeFood() bool {
	total := e.size * e.size
	if len(e.segs) >= total {
		e.food = -1
		return false
	}

	for i := 0; i < foodAttempts; i++ {
		index := e.rng.Intn(total)
		if !e.occupied[index] {
			e.food = index
			return true
		}
	}

	// 蛇很长时随机取样命中率低，直接在空格子里选
	free := make([]int, 0, total-len(e.segs))
	for index, taken := range e.occupied {
		if !taken {
			free = append(free, index)
		}
	}
	e.food = free[e.rng.Intn(len(free))]
	return true
}

// Snapshot returns the board as cell tags plus the values the controls show.
func (e *Engine) Snapshot() structs.Snapshot {
	cells := make([]structs.CellTag, e.size*e.size)
	if e.food >= 0 {
		cells[e.food] = structs.Food
	}
	for _, index := range e.segs {
		cells[index] = structs.SnakeBody
	}
	return structs.Snapshot{
		Size:      e.size,
		Cells:     cells,
		Score:     e.score,
		Status:    e.status,
		Direction: e.direction,
		Length:    len(e.segs),
		Head:      e.Head(),
	}
}

func (e *Engine) Size() int                    { return e.size }
func (e *Engine) Head() int                    { return e.segs[len(e.segs)-1] }
func (e *Engine) Food() int                    { return e.food }
func (e *Engine) Score() int                   { return e.score }
func (e *Engine) Status() structs.Status       { return e.status }
func (e *Engine) Direction() structs.Direction { return e.direction }
func (e *Engine) Len() int                     { return len(e.segs) }

// Body returns the snake cells, head first.
func (e *Engine) Body() []int {
	body := make([]int, len(e.segs))
	for i, index := range e.segs {
		body[len(e.segs)-1-i] = index
	}
	return body
}
