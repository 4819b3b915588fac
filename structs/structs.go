package structs

// Direction 描述蛇的移动方向，取值与前端传来的字符串一致。
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists the four valid directions in button order.
var Directions = []Direction{Up, Left, Down, Right}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Opposite returns the reverse of d, or "" for an invalid direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return ""
}

// ParseDirection 把外部输入转换为方向，非法输入返回 false。
func ParseDirection(s string) (Direction, bool) {
	d := Direction(s)
	return d, d.Valid()
}

// Status 描述一局游戏的状态。
type Status string

const (
	Playing Status = "playing"
	Paused  Status = "paused"
	Over    Status = "over"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == Playing || s == Paused || s == Over
}

// CellTag 描述一个格子在渲染时的内容。
type CellTag int

const (
	Empty CellTag = iota
	SnakeBody
	Food
)

func (c CellTag) String() string {
	switch c {
	case SnakeBody:
		return "snake"
	case Food:
		return "food"
	default:
		return "empty"
	}
}

// Snapshot 是提供给渲染层的只读视图，每次调用重新生成。
type Snapshot struct {
	Size      int       `json:"size"`      // 地图边长 N
	Cells     []CellTag `json:"cells"`     // 长度 N*N，按下标排列
	Score     int       `json:"score"`     // 当前得分
	Status    Status    `json:"status"`    // playing / paused / over
	Direction Direction `json:"direction"` // 下一次移动的方向，用于高亮按钮
	Length    int       `json:"length"`    // 蛇身长度
	Head      int       `json:"head"`      // 蛇头下标，用于绘制蛇头贴图
}

// IsPlaying and IsGameOver are the two flags the controls read.
func (s Snapshot) IsPlaying() bool  { return s.Status == Playing }
func (s Snapshot) IsGameOver() bool { return s.Status == Over }

// GameState 是引擎状态的可序列化副本，用于持久化与恢复。
type GameState struct {
	Size      int       `json:"size"`
	Body      []int     `json:"body"`      // 蛇身下标，蛇头在前
	Direction Direction `json:"direction"` // 下一次 tick 使用的方向
	Moving    Direction `json:"moving"`    // 上一次 tick 实际移动的方向
	Food      int       `json:"food"`
	Score     int       `json:"score"`
	Status    Status    `json:"status"`
}

// SessionRecord 描述数据库中保存的一局游戏。
type SessionRecord struct {
	ID        string    `json:"id"`
	State     GameState `json:"state"`
	UpdatedAt int64     `json:"updated_at"` // 时间戳
}
