package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/hoshinonyaruko/snake-in-browser/api"
	"github.com/hoshinonyaruko/snake-in-browser/config"
	"github.com/hoshinonyaruko/snake-in-browser/memimg"
	"github.com/hoshinonyaruko/snake-in-browser/render"
	"github.com/hoshinonyaruko/snake-in-browser/session"
	"github.com/hoshinonyaruko/snake-in-browser/sqlite"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// 默认日志输出到终端，可以用 -logtostderr=false 改回写文件
	flag.Set("logtostderr", "true")
	configPath := flag.String("config", "./config.json", "path of the JSON config file")
	flag.Parse()
	defer glog.Flush()

	// Initialize the configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}
	EnsureFoldersExist(cfg.SkinDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 载入格子贴图到内存
	sprites := memimg.New(cfg.Blocksize)
	if err := sprites.Load(cfg.SkinDir); err != nil {
		glog.Warningf("Failed to load sprites from %s: %v", cfg.SkinDir, err)
	}

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		glog.Fatalf("Failed to open database %s: %v", cfg.DBPath, err)
	}
	defer store.Close()

	manager, err := session.NewManager(session.Config{
		GridSize:     cfg.GridSize,
		TickInterval: cfg.TickInterval(),
		IdleTimeout:  cfg.IdleTimeout(),
		Store:        store,
	})
	if err != nil {
		glog.Fatalf("Failed to create session manager: %v", err)
	}
	// 服务器重启后恢复未结束的游戏
	restored, err := manager.Restore(ctx)
	if err != nil {
		glog.Errorf("Failed to restore sessions: %v", err)
	}
	glog.Infof("Restored %d sessions", restored)

	router := gin.Default()
	api.Register(router, manager, render.New(cfg.Blocksize, sprites), cfg.SelfPath)
	router.Static("/static", "./static") // 静态文件服务
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/static/index.html")
	})

	srv := &http.Server{
		Addr:    ":" + config.GetConfigValue("port").(string),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		glog.Infof("Serving HTTP at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// websocket 连接不归 Shutdown 管，结束游戏时一并关闭
		manager.StopAll()
		return err
	})
	g.Go(func() error {
		// 热更新只影响移动速度，地图大小只对新游戏生效
		err := config.Watch(gctx, *configPath, func(c *config.AppConfig) {
			manager.SetInterval(c.TickInterval())
		})
		if err != nil {
			glog.Warningf("Config hot reload disabled: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := sprites.Watch(gctx, cfg.SkinDir); err != nil {
			glog.Warningf("Sprite hot reload disabled: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		glog.Errorf("Server stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Info("Server stopped")
}

// EnsureFoldersExist 检查并创建必需的文件夹
func EnsureFoldersExist(skinDir string) {
	folders := []string{"static", skinDir}

	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			// 文件夹不存在，尝试创建它
			if err := os.MkdirAll(folder, 0755); err != nil {
				glog.Fatalf("Failed to create %s directory: %s", folder, err)
			}
			glog.Infof("Created %s directory", folder)
		}
	}
}
