package websocketPkg

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"UrbanScout/pkg/vision"
)

// IWebsocket talks to the DETR sidecar over a persistent websocket. The
// sidecar accepts a binary JPEG frame and replies with one JSON message
// containing the raw detections for that frame.
type IWebsocket interface {
	vision.Detector
	IsConnected() bool
	Reconnect() error
	CloseConnection()
}

type detectionFrame struct {
	Detections []struct {
		Label string    `json:"label"`
		Score float64   `json:"score"`
		Box   []float64 `json:"box"`
	} `json:"detections"`
}

type webSocketClient struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewAIWebSocketClient() IWebsocket {
	client := &webSocketClient{
		pingInterval: 30 * time.Second,
		readTimeout:  20 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		log.Printf("Initial connection to object detection service failed: %v. Will retry on demand.", err)
	} else {
		log.Printf("Successfully connected to object detection service")
	}
}

func (c *webSocketClient) Name() string {
	return "detr"
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	url := os.Getenv("AI_DETECTION_WS_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/detect/ws"
	}

	log.Printf("Connecting to object detection service at %s", url)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Printf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn

	go c.keepAlive()

	return nil
}

func (c *webSocketClient) CloseConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		conn := c.conn
		if conn == nil {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(
			websocket.PingMessage,
			[]byte{},
			time.Now().Add(c.writeTimeout),
		)
		if err != nil {
			log.Printf("Ping failed, marking detection connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

// Detect sends one image frame and waits for the detection reply. The sidecar
// protocol is strictly request/response on a single stream, so the whole
// round-trip holds the connection lock; concurrent scans queue behind it
// instead of interleaving reads on one connection.
func (c *webSocketClient) Detect(ctx context.Context, image []byte) ([]vision.Detection, error) {
	if !c.IsConnected() {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to object detection service: %w", err)
		}
	}

	readTimeout := c.readTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < readTimeout {
			readTimeout = until
		}
	}

	c.mu.Lock()

	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("not connected to object detection service")
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))

	if err := conn.WriteMessage(websocket.BinaryMessage, image); err != nil {
		c.conn = nil
		conn.Close()
		c.mu.Unlock()
		return nil, fmt.Errorf("error sending image frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.conn = nil
		conn.Close()
		c.mu.Unlock()
		return nil, fmt.Errorf("error reading detection message: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	c.mu.Unlock()

	var frame detectionFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return nil, fmt.Errorf("error unmarshaling detection response: %w", err)
	}

	detections := make([]vision.Detection, 0, len(frame.Detections))
	for _, d := range frame.Detections {
		if len(d.Box) != 4 {
			continue
		}
		detections = append(detections, vision.Detection{
			Label: d.Label,
			Score: d.Score,
			Box: vision.BoundingBox{
				XMin: d.Box[0],
				YMin: d.Box[1],
				XMax: d.Box[2],
				YMax: d.Box[3],
			},
		})
	}

	return detections, nil
}
