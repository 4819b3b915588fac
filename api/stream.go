package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-in-browser/session"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// command is a message from the browser: a direction intent or an action.
type command struct {
	Direction string `json:"direction,omitempty"`
	Action    string `json:"action,omitempty"` // "pause" 或 "reset"
}

func (cmd command) apply(s *session.Session) {
	if cmd.Direction != "" {
		s.SetDirection(structs.Direction(cmd.Direction))
	}
	switch cmd.Action {
	case "pause":
		s.TogglePause()
	case "reset":
		s.Reset()
	}
}

// Stream upgrades to a websocket that carries a snapshot after every change
// and accepts commands from the browser.
func Stream(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookupSession(c, m)
		if !ok {
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 已经写好了错误响应
			glog.Warningf("websocket upgrade for session %s: %v", s.ID, err)
			return
		}
		defer conn.Close()

		updates, cancel := s.Subscribe()
		defer cancel()

		go readCommands(conn, s, cancel)

		for snap := range updates {
			if err := writeJSON(conn, snap); err != nil {
				glog.V(1).Infof("websocket write for session %s: %v", s.ID, err)
				return
			}
		}

		// 订阅被关闭：游戏被删除或服务器退出
		if err := writeClose(conn); err != nil {
			glog.V(1).Infof("websocket close for session %s: %v", s.ID, err)
		}
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func writeClose(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
}

// readCommands applies browser commands until the connection fails, then
// cancels the subscription so the writer stops too.
func readCommands(conn *websocket.Conn, s *session.Session, cancel func()) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				glog.V(1).Infof("websocket read for session %s: %v", s.ID, err)
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			// 格式不对的消息直接忽略
			continue
		}
		cmd.apply(s)
	}
}
