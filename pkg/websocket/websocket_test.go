package websocketPkg

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"UrbanScout/pkg/vision"
)

// newDetectionServer upgrades to websocket and answers each binary frame with
// one detection whose label echoes the frame content, so a caller can check
// that the reply it read belongs to the frame it sent.
func newDetectionServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}

			reply := fmt.Sprintf(`{"detections":[{"label":%q,"score":0.9,"box":[10,20,30,40]}]}`, string(frame))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
}

func newTestClient(t *testing.T, serverURL string) *webSocketClient {
	t.Helper()

	t.Setenv("AI_DETECTION_WS_URL", "ws"+strings.TrimPrefix(serverURL, "http"))

	return &webSocketClient{
		pingInterval: time.Minute,
		readTimeout:  5 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func TestDetect_ParsesSidecarReply(t *testing.T) {
	srv := newDetectionServer(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.Reconnect())
	defer client.CloseConnection()

	detections, err := client.Detect(context.Background(), []byte("frame-1"))
	require.NoError(t, err)
	require.Len(t, detections, 1)
	require.Equal(t, "frame-1", detections[0].Label)
	require.InDelta(t, 0.9, detections[0].Score, 1e-9)
	require.Equal(t, vision.BoundingBox{XMin: 10, YMin: 20, XMax: 30, YMax: 40}, detections[0].Box)
}

func TestDetect_ConcurrentCallsShareOneConnection(t *testing.T) {
	srv := newDetectionServer(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.Reconnect())
	defer client.CloseConnection()

	const callers = 4
	const rounds = 25

	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		frame := []byte(fmt.Sprintf("frame-%d", i))

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				detections, err := client.Detect(context.Background(), frame)
				if err != nil {
					errs <- err
					return
				}
				if len(detections) != 1 || detections[0].Label != string(frame) {
					errs <- fmt.Errorf("reply for frame %q carried %+v", frame, detections)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestDetect_ReconnectsAfterClose(t *testing.T) {
	srv := newDetectionServer(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.Reconnect())

	client.CloseConnection()
	require.False(t, client.IsConnected())

	detections, err := client.Detect(context.Background(), []byte("frame-2"))
	require.NoError(t, err)
	require.Len(t, detections, 1)
	require.Equal(t, "frame-2", detections[0].Label)

	client.CloseConnection()
}
