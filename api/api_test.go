package api

import (
	"encoding/json"
	"image/png"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-in-browser/render"
	"github.com/hoshinonyaruko/snake-in-browser/session"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

func newTestRouter(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := session.NewManager(session.Config{
		GridSize:     10,
		TickInterval: time.Hour,
		NewRand:      func() *rand.Rand { return rand.New(rand.NewSource(1)) },
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.StopAll)

	router := gin.New()
	Register(router, m, render.New(4, nil), "example.com")
	return router, m
}

func do(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/session")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /session = %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Session  string           `json:"session"`
		Snapshot structs.Snapshot `json:"snapshot"`
		ImageURL string           `json:"image_url"`
	}
	decode(t, rec, &resp)
	if resp.Snapshot.Size != 10 || len(resp.Snapshot.Cells) != 100 {
		t.Fatalf("snapshot = %+v", resp.Snapshot)
	}
	if want := "http://example.com/render-map?session=" + resp.Session; resp.ImageURL != want {
		t.Fatalf("image_url = %q, want %q", resp.ImageURL, want)
	}
	return resp.Session
}

func TestSessionLookupErrors(t *testing.T) {
	router, _ := newTestRouter(t)
	tests := []struct {
		target string
		want   int
	}{
		{"/snapshot", http.StatusBadRequest},
		{"/snapshot?session=nope", http.StatusBadRequest},
		{"/snapshot?session=" + uuid.NewString(), http.StatusNotFound},
		{"/toggle-pause?session=" + uuid.NewString(), http.StatusNotFound},
		{"/update-direction?session=" + uuid.NewString(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.target)
			if rec.Code != tt.want {
				t.Fatalf("GET %s = %d, want %d", tt.target, rec.Code, tt.want)
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["error"] == "" {
				t.Fatalf("no error message in %q", rec.Body.String())
			}
		})
	}
}

func TestGameRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createSession(t, router)

	var snap structs.Snapshot
	rec := do(t, router, http.MethodGet, "/snapshot?session="+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /snapshot = %d", rec.Code)
	}
	decode(t, rec, &snap)
	if snap.Status != structs.Playing || snap.Cells[0] != structs.SnakeBody {
		t.Fatalf("snapshot = %+v", snap)
	}

	directions := []struct {
		direction string
		accepted  bool
	}{
		{"left", false},     // 掉头
		{"diagonal", false}, // 非法方向，忽略
		{"down", true},
	}
	for _, d := range directions {
		rec := do(t, router, http.MethodGet, "/update-direction?session="+id+"&direction="+d.direction)
		if rec.Code != http.StatusOK {
			t.Fatalf("update-direction %s = %d", d.direction, rec.Code)
		}
		var resp struct {
			Accepted bool             `json:"accepted"`
			Snapshot structs.Snapshot `json:"snapshot"`
		}
		decode(t, rec, &resp)
		if resp.Accepted != d.accepted {
			t.Fatalf("update-direction %s accepted = %v, want %v", d.direction, resp.Accepted, d.accepted)
		}
	}

	rec = do(t, router, http.MethodGet, "/toggle-pause?session="+id)
	decode(t, rec, &snap)
	if snap.Status != structs.Paused || snap.Direction != structs.Down {
		t.Fatalf("after pause = %+v", snap)
	}

	rec = do(t, router, http.MethodGet, "/reset?session="+id)
	decode(t, rec, &snap)
	if snap.Status != structs.Playing || snap.Direction != structs.Right || snap.Score != 0 {
		t.Fatalf("after reset = %+v", snap)
	}
}

func TestRenderMap(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createSession(t, router)

	rec := do(t, router, http.MethodGet, "/render-map?session="+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /render-map = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Fatalf("image is %dx%d, want 40x40", b.Dx(), b.Dy())
	}
}

func TestDeleteSession(t *testing.T) {
	router, m := newTestRouter(t)
	id := createSession(t, router)

	rec := do(t, router, http.MethodDelete, "/session?session="+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /session = %d %s", rec.Code, rec.Body.String())
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d after delete", m.Len())
	}
	rec = do(t, router, http.MethodGet, "/snapshot?session="+id)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /snapshot after delete = %d", rec.Code)
	}
}

func TestStream(t *testing.T) {
	router, m := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	id := createSession(t, router)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap structs.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != structs.Playing {
		t.Fatalf("first snapshot = %+v", snap)
	}

	// 格式错误的消息不会断开连接
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(command{Direction: "up"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Direction != structs.Up {
		t.Fatalf("direction = %s, want up", snap.Direction)
	}

	if err := conn.WriteJSON(command{Action: "pause"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != structs.Paused {
		t.Fatalf("status = %s, want paused", snap.Status)
	}

	// 删除游戏后服务器关闭连接
	if err := m.Remove(id); err != nil {
		t.Fatal(err)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("read after remove: %v", err)
			}
			return
		}
	}
}
