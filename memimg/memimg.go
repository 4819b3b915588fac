package memimg

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
)

// Store keeps cell sprites in memory, scaled to the block size.
// Sprites are keyed by file name without extension: "head.png" is "head".
type Store struct {
	blockSize int
	images    map[string]image.Image
	mu        sync.RWMutex
}

// New returns an empty store that scales sprites to blockSize×blockSize.
func New(blockSize int) *Store {
	return &Store{
		blockSize: blockSize,
		images:    make(map[string]image.Image),
	}
}

func spriteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Load reads every image in directory. A missing directory is not an error.
func (s *Store) Load(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isImage(path) {
			return nil
		}
		return s.loadFile(path)
	})
}

func (s *Store) loadFile(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return err
	}
	// 缩放到一个格子的大小，超出部分从中间裁掉
	scaled := imaging.Fill(img, s.blockSize, s.blockSize, imaging.Center, imaging.Lanczos)

	s.mu.Lock()
	s.images[spriteName(path)] = scaled
	s.mu.Unlock()
	return nil
}

// Watch reloads sprites written into directory until ctx is done.
func (s *Store) Watch(ctx context.Context, directory string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(directory); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isImage(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				if err := s.loadFile(event.Name); err != nil {
					// 文件可能还没写完，下一次写事件会再读
					glog.V(1).Infof("reloading sprite %s: %v", event.Name, err)
					continue
				}
				glog.Infof("loaded sprite %s", spriteName(event.Name))
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				s.Delete(spriteName(event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			glog.Errorf("sprite watcher: %v", err)
		}
	}
}

// Get returns the sprite with the given name.
func (s *Store) Get(name string) (image.Image, bool) {
	s.mu.RLock()
	img, exists := s.images[name]
	s.mu.RUnlock()
	return img, exists
}

// Delete forgets a sprite.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	delete(s.images, name)
	s.mu.Unlock()
}

// Len returns the number of loaded sprites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
