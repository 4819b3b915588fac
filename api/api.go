package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/hoshinonyaruko/snake-in-browser/render"
	"github.com/hoshinonyaruko/snake-in-browser/session"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

// Register adds the game routes to router. selfPath is the public host used
// to build image links.
func Register(router gin.IRouter, m *session.Manager, r *render.Renderer, selfPath string) {
	// 新建一局游戏
	router.POST("/session", CreateSession(m, selfPath))
	// 结束并删除一局游戏
	router.DELETE("/session", DeleteSession(m))
	// 读取当前地图
	router.GET("/snapshot", Snapshot(m))
	// 处理玩家改变方向
	router.GET("/update-direction", UpdateDirection(m))
	router.GET("/toggle-pause", TogglePause(m))
	router.GET("/reset", Reset(m))
	// 渲染函数 返回 png
	router.GET("/render-map", RenderMapHandler(m, r))
	// 推送每一帧
	router.GET("/ws", Stream(m))
}

// lookupSession reads the session query parameter and writes the error
// response itself when the session cannot be used.
func lookupSession(c *gin.Context, m *session.Manager) (*session.Session, bool) {
	id := c.Query("session")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: session"})
		return nil, false
	}

	s, err := m.Get(id)
	switch {
	case err == nil:
		return s, true
	case errors.Is(err, session.ErrInvalidSessionID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	return nil, false
}

func imageURL(selfPath, id string) string {
	return fmt.Sprintf("http://%s/render-map?session=%s", selfPath, id)
}

func CreateSession(m *session.Manager, selfPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.Create()
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, session.ErrManagerStopped) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": "Unable to create game session"})
			return
		}
		id := s.ID.String()
		c.JSON(http.StatusCreated, gin.H{
			"session":   id,
			"snapshot":  s.Snapshot(),
			"image_url": imageURL(selfPath, id),
		})
	}
}

func DeleteSession(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, m)
		if !ok {
			return
		}
		if err := m.Remove(s.ID.String()); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			glog.Errorf("removing session %s: %v", s.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
	}
}

func Snapshot(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// UpdateDirection changes the snake's direction. Directions the game does not
// accept (unknown values, reversing, not playing) are ignored, not errors.
func UpdateDirection(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		newDirection := c.Query("direction")
		// 验证是否提供了必要的查询参数
		if newDirection == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: direction"})
			return
		}
		s, ok := lookupSession(c, m)
		if !ok {
			return
		}

		accepted := s.SetDirection(structs.Direction(newDirection))
		c.JSON(http.StatusOK, gin.H{"accepted": accepted, "snapshot": s.Snapshot()})
	}
}

func TogglePause(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.TogglePause())
	}
}

func Reset(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Reset())
	}
}

func RenderMapHandler(m *session.Manager, r *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, m)
		if !ok {
			return
		}
		c.Header("Content-Type", "image/png")
		c.Header("Cache-Control", "no-store")
		c.Status(http.StatusOK)
		if err := r.EncodePNG(c.Writer, s.Snapshot()); err != nil {
			glog.Errorf("rendering session %s: %v", s.ID, err)
		}
	}
}
