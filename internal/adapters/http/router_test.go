package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/relay/internal/app"
	"github.com/dkeye/relay/internal/app/orch"
	"github.com/dkeye/relay/internal/config"
	"github.com/dkeye/relay/internal/store"
	transport "github.com/dkeye/relay/internal/transport/http"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:           "test",
		StaticPath:     "./web",
		ReadLimit:      4096,
		WriteTimeout:   time.Second,
		SendBuffer:     8,
		Secret:         "test-secret",
		CreateLimit:    2,
		CreateInterval: time.Minute,
	}
}

func newTestRouter(t *testing.T) (http.Handler, *orch.Orchestrator) {
	t.Helper()
	s := store.NewMemory()
	o := orch.New(s, s, app.SimplePolicy{})
	t.Cleanup(func() { o.Shutdown(context.Background()) })
	return SetupRouter(context.Background(), testConfig(), o), o
}

func do(r http.Handler, method, url string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_CreateAndGetRoom(t *testing.T) {
	req := require.New(t)
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/rooms?code=ABCD")
	req.Equal(http.StatusCreated, w.Code)
	var created transport.RoomResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &created))
	req.NotEmpty(created.RoomID)
	req.Equal("ABCD", string(created.RoomCode))

	w = do(r, http.MethodGet, "/api/rooms/"+string(created.RoomID))
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"room_id":"`+string(created.RoomID)+`","room_code":"ABCD"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/rooms/nope")
	req.Equal(http.StatusNotFound, w.Code)
}

func TestRouter_CreateRoomJSONBody(t *testing.T) {
	req := require.New(t)
	r, _ := newTestRouter(t)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"code":"WXYZ"}`))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)

	req.Equal(http.StatusCreated, w.Code)
	req.Contains(w.Body.String(), `"room_code":"WXYZ"`)
}

func TestRouter_CreateRoomWithoutCode(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/rooms")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CreateRoomRateLimitedPerClient(t *testing.T) {
	req := require.New(t)
	r, _ := newTestRouter(t)

	first := do(r, http.MethodPost, "/api/rooms?code=A")
	req.Equal(http.StatusCreated, first.Code)
	cookies := first.Result().Cookies()
	req.NotEmpty(cookies)

	req.Equal(http.StatusCreated, do(r, http.MethodPost, "/api/rooms?code=B", cookies...).Code)
	req.Equal(http.StatusTooManyRequests, do(r, http.MethodPost, "/api/rooms?code=C", cookies...).Code)
}

func TestRouter_CreateRoomLimitHoldsWithoutCookies(t *testing.T) {
	req := require.New(t)
	r, _ := newTestRouter(t)

	created, limited := 0, 0
	for range 20 {
		switch do(r, http.MethodPost, "/api/rooms?code=X").Code {
		case http.StatusCreated:
			created++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	req.Equal(testConfig().CreateLimit, created)
	req.Equal(20-testConfig().CreateLimit, limited)
}

func TestRouter_CreateRoomLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	req := require.New(t)
	r, _ := newTestRouter(t)

	limited := 0
	for i := range 10 {
		httpReq := httptest.NewRequest(http.MethodPost, "/api/rooms?code=X", nil)
		httpReq.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httpReq)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	req.Equal(10-testConfig().CreateLimit, limited)
}

func TestRouter_StatusTracksSessions(t *testing.T) {
	req := require.New(t)
	r, o := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	w := do(r, http.MethodPost, "/api/rooms?code=ABCD")
	var created transport.RoomResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &created))

	req.JSONEq(`{"active_sessions":0}`, do(r, http.MethodGet, "/api/status").Body.String())

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/"+string(created.RoomID), nil)
	req.NoError(err)
	defer ws.Close()
	_, ack, err := ws.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"room_id":"`+string(created.RoomID)+`","room_code":"ABCD"}`, string(ack))

	req.Equal(int64(1), o.ActiveCount())
	req.JSONEq(`{"active_sessions":1}`, do(r, http.MethodGet, "/api/status").Body.String())
}

func TestRouter_ListRooms(t *testing.T) {
	req := require.New(t)
	r, _ := newTestRouter(t)

	req.JSONEq(`{"rooms":[],"active_sessions":0}`, do(r, http.MethodGet, "/api/rooms").Body.String())

	var created transport.RoomResponse
	req.NoError(json.Unmarshal(do(r, http.MethodPost, "/api/rooms?code=ABCD").Body.Bytes(), &created))

	w := do(r, http.MethodGet, "/api/rooms?limit=10")
	req.Equal(http.StatusOK, w.Code)
	var list transport.RoomListResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &list))
	req.Equal([]transport.RoomResponse{created}, list.Rooms)
}
