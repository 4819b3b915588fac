package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/glog"
	"github.com/hoshinonyaruko/snake-in-browser/snake"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

var (
	emptyStyle = tcell.StyleDefault.Background(tcell.ColorLightGray)
	snakeStyle = tcell.StyleDefault.Background(tcell.ColorGreen)
	foodStyle  = tcell.StyleDefault.Background(tcell.ColorRed)
	textStyle  = tcell.StyleDefault
)

var keyDirections = map[tcell.Key]structs.Direction{
	tcell.KeyUp:    structs.Up,
	tcell.KeyDown:  structs.Down,
	tcell.KeyLeft:  structs.Left,
	tcell.KeyRight: structs.Right,
}

var runeDirections = map[rune]structs.Direction{
	'w': structs.Up,
	's': structs.Down,
	'a': structs.Left,
	'd': structs.Right,
}

// handleKey applies one key press to the engine. It returns false when the
// player asked to quit.
func handleKey(engine *snake.Engine, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return false
	case tcell.KeyRune:
		switch r := ev.Rune(); r {
		case 'q':
			return false
		case 'r':
			engine.Reset()
		case ' ':
			engine.TogglePause()
		default:
			if d, ok := runeDirections[r]; ok {
				engine.SetDirection(d)
			}
		}
	default:
		if d, ok := keyDirections[ev.Key()]; ok {
			if !engine.SetDirection(d) {
				glog.V(2).Infof("Key %v ignored", d)
			}
		}
	}
	return true
}

func cellStyle(tag structs.CellTag) tcell.Style {
	switch tag {
	case structs.SnakeBody:
		return snakeStyle
	case structs.Food:
		return foodStyle
	default:
		return emptyStyle
	}
}

// draw 把快照画到屏幕上，每个格子占两列，第一行是状态栏
func draw(s tcell.Screen, snap structs.Snapshot) {
	s.Clear()
	for i, tag := range snap.Cells {
		row, col := snake.RowCol(snap.Size, i)
		style := cellStyle(tag)
		s.SetContent(col*2, row+1, ' ', nil, style)
		s.SetContent(col*2+1, row+1, ' ', nil, style)
	}
	drawText(s, 0, 0, statusLine(snap))
	s.Show()
}

func statusLine(snap structs.Snapshot) string {
	switch snap.Status {
	case structs.Paused:
		return fmt.Sprintf("Score: %d  PAUSED (space to resume)", snap.Score)
	case structs.Over:
		return fmt.Sprintf("Score: %d  GAME OVER (r to restart, q to quit)", snap.Score)
	default:
		return fmt.Sprintf("Score: %d", snap.Score)
	}
}

func drawText(s tcell.Screen, x, y int, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, textStyle)
		x++
	}
}
