package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	ws "github.com/vandap/vandap-backend/internal/websocket"
)

// dialStream upgrades a connection against a throwaway server and returns
// the client side wrapped in an attemptStream, plus a channel carrying every
// frame the server reads. The channel closes when the connection breaks.
func dialStream(t *testing.T) (*attemptStream, <-chan []byte) {
	t.Helper()

	frames := make(chan []byte, 1024)
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				close(frames)
				return
			}
			frames <- data
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &attemptStream{conn: conn}, frames
}

// The pubsub forwarder and the read loop write to the same connection from
// different goroutines. Every frame has to go through the stream lock or
// gorilla panics on the concurrent write.
func TestAttemptStreamSerializesConcurrentWrites(t *testing.T) {
	stream, frames := dialStream(t)

	const writers = 4
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				var err error
				if n%2 == 0 {
					err = stream.send(ws.PongResponse{Event: ws.EventPong})
				} else {
					err = stream.send(ws.UpdateResponse{Event: ws.EventUpdate, Payload: "{}"})
				}
				if err != nil {
					t.Errorf("writer %d: send: %v", n, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	want := writers * perWriter
	for i := 0; i < want; i++ {
		select {
		case _, ok := <-frames:
			if !ok {
				t.Fatalf("connection dropped after %d of %d frames", i, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of %d frames", i, want)
		}
	}
}

func TestBuildUpgraderOriginCheck(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty list allows all", nil, "http://evil.example", true},
		{"listed origin allowed", []string{"https://vandap.edu.vn"}, "https://vandap.edu.vn", true},
		{"case insensitive match", []string{"https://VANDAP.edu.vn"}, "https://vandap.edu.vn", true},
		{"unlisted origin rejected", []string{"https://vandap.edu.vn"}, "http://evil.example", false},
		{"missing origin rejected", []string{"https://vandap.edu.vn"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := buildUpgrader(tt.allowed)
			req := httptest.NewRequest(http.MethodGet, "/ws/v1/student/exams/x/stream", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := up.CheckOrigin(req); got != tt.want {
				t.Errorf("CheckOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
