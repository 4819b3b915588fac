// snake-term plays the game in a terminal.
//
// arrows or wasd to steer, space to pause, r to reset, q or ctrl-c to quit
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/glog"
	"github.com/hoshinonyaruko/snake-in-browser/snake"
)

func main() {
	size := flag.Int("size", 20, "board edge length in cells")
	tick := flag.Duration("tick", 120*time.Millisecond, "time between moves")
	flag.Parse()
	defer glog.Flush()

	if err := run(*size, *tick); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(size int, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick must be positive, got %v", interval)
	}
	engine, err := snake.New(size)
	if err != nil {
		return err
	}

	s, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("problem creating screen: %v", err)
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("init problem: %v", err)
	}
	defer s.Fini()
	s.SetStyle(tcell.StyleDefault)

	return loop(s, engine, interval)
}

// loop owns the engine: ticks and key presses are handled in one goroutine.
func loop(s tcell.Screen, engine *snake.Engine, interval time.Duration) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go s.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		draw(s, engine.Snapshot())
		select {
		case <-ticker.C:
			engine.Tick()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				s.Sync()
			case *tcell.EventKey:
				if !handleKey(engine, ev) {
					return nil
				}
			}
		}
	}
}
