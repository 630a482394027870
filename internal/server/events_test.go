package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/howard-nolan/hive/internal/loop"
)

func TestHandleLoopEventsStreamsSnapshot(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.loops.Create(loop.DefaultConfig())

	httpSrv := httptest.NewServer(s)
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/v1/loop/" + id + "/events"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var event loopEvent
	require.NoError(t, json.Unmarshal(data, &event))
	require.Equal(t, loop.StatusRunning, event.Status)
}

func TestHandleLoopEventsUnknownID(t *testing.T) {
	s := newTestServer(t)
	httpSrv := httptest.NewServer(s)
	defer httpSrv.Close()

	resp, err := httpSrv.Client().Get(httpSrv.URL + "/v1/loop/does-not-exist/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 404, resp.StatusCode)
}
