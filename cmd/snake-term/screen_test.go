package main

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/hoshinonyaruko/snake-in-browser/snake"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

func newEngine(t *testing.T) *snake.Engine {
	t.Helper()
	e, err := snake.New(5, snake.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestHandleKey(t *testing.T) {
	tests := []struct {
		name   string
		ev     *tcell.EventKey
		want   structs.Direction
		status structs.Status
		keepOn bool
	}{
		{"arrow down", tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), structs.Down, structs.Playing, true},
		{"wasd up", tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone), structs.Up, structs.Playing, true},
		{"reverse ignored", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), structs.Right, structs.Playing, true},
		{"space pauses", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), structs.Right, structs.Paused, true},
		{"q quits", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), structs.Right, structs.Playing, false},
		{"ctrl-c quits", tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), structs.Right, structs.Playing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			if got := handleKey(e, tt.ev); got != tt.keepOn {
				t.Fatalf("handleKey = %v, want %v", got, tt.keepOn)
			}
			if e.Direction() != tt.want || e.Status() != tt.status {
				t.Fatalf("direction %s status %s, want %s %s", e.Direction(), e.Status(), tt.want, tt.status)
			}
		})
	}
}

func TestResetKey(t *testing.T) {
	e := newEngine(t)
	e.SetDirection(structs.Down)
	e.Tick()
	handleKey(e, tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone))
	if e.Head() != 0 || e.Direction() != structs.Right || e.Len() != 1 {
		t.Fatalf("after reset head=%d dir=%s len=%d", e.Head(), e.Direction(), e.Len())
	}
}

func TestDraw(t *testing.T) {
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	defer s.Fini()
	s.SetSize(20, 10)

	e := newEngine(t)
	snap := e.Snapshot()
	draw(s, snap)

	cells, width, _ := s.GetContents()
	styleAt := func(x, y int) tcell.Style { return cells[y*width+x].Style }

	// 蛇头在 0 号格子，占第 1 行的前两列
	for _, x := range []int{0, 1} {
		if _, bg, _ := styleAt(x, 1).Decompose(); bg != tcell.ColorGreen {
			t.Fatalf("cell (%d,1) background = %v, want green", x, bg)
		}
	}
	row, col := snake.RowCol(snap.Size, e.Food())
	if _, bg, _ := styleAt(col*2+1, row+1).Decompose(); bg != tcell.ColorRed {
		t.Fatalf("food background = %v, want red", bg)
	}

	var line strings.Builder
	for x := 0; x < width; x++ {
		for _, r := range cells[x].Runes {
			line.WriteRune(r)
		}
	}
	if !strings.HasPrefix(line.String(), "Score: 0") {
		t.Fatalf("status line = %q", line.String())
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		status structs.Status
		want   string
	}{
		{structs.Playing, "Score: 3"},
		{structs.Paused, "PAUSED"},
		{structs.Over, "GAME OVER"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := statusLine(structs.Snapshot{Score: 3, Status: tt.status})
			if !strings.Contains(got, tt.want) {
				t.Fatalf("statusLine = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
