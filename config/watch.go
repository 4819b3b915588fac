package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
)

// Watch reloads filePath whenever it is written and passes the new
// configuration to onChange. It blocks until ctx is done.
func Watch(ctx context.Context, filePath string, onChange func(*AppConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// 监听目录而不是文件，编辑器保存时经常是重命名替换
	if err := watcher.Add(filepath.Dir(filePath)); err != nil {
		return err
	}
	name := filepath.Clean(filePath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Reload(filePath)
			if err != nil {
				glog.Warningf("keeping previous config, reload of %s failed: %v", filePath, err)
				continue
			}
			glog.Infof("reloaded %s", filePath)
			if onChange != nil {
				onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			glog.Errorf("config watcher: %v", err)
		}
	}
}
