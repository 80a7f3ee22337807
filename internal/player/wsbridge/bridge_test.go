package wsbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startBridge accepts one connection on a test server, wraps it in a Bridge,
// and returns the bridge together with the client side of the socket.
func startBridge(t *testing.T) (*Bridge, *websocket.Conn) {
	t.Helper()

	bridgeCh := make(chan *Bridge, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		b := New(r.Context(), conn)
		bridgeCh <- b
		// Keep the handler alive until the test finishes so the server side
		// of the connection is not torn down early.
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close(websocket.StatusNormalClosure, "test done") })

	select {
	case b := <-bridgeCh:
		return b, client
	case <-time.After(3 * time.Second):
		t.Fatal("bridge was not created")
		return nil, nil
	}
}

// writeFrame sends one frame from the client side.
func writeFrame(t *testing.T, conn *websocket.Conn, f Frame) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, _ := json.Marshal(f)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// readFrame reads one frame on the client side.
func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return f
}

// waitForTime polls the bridge clock until it reports want or the deadline
// passes. The read loop applies frames asynchronously.
func waitForTime(t *testing.T, b *Bridge, want float64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if b.CurrentTime() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("bridge clock never reached %v (at %v)", want, b.CurrentTime())
}

func TestBridge_TimeReports(t *testing.T) {
	b, client := startBridge(t)

	if got := b.CurrentTime(); got != 0 {
		t.Errorf("initial CurrentTime = %v, want 0", got)
	}

	writeFrame(t, client, Frame{Type: FrameTime, Seconds: 12.34, Playing: true})
	waitForTime(t, b, 12.34)

	if !b.Playing() {
		t.Error("Playing() = false after a playing time frame")
	}
}

func TestBridge_SeekCommand(t *testing.T) {
	b, client := startBridge(t)

	if err := b.SeekTo(7, true); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}

	f := readFrame(t, client)
	if f.Type != FrameSeek || f.Seconds != 7 || !f.Resume {
		t.Errorf("unexpected seek frame: %+v", f)
	}

	// The cached clock moves optimistically so the tick loop never sees the
	// pre-seek position while the browser catches up.
	if got := b.CurrentTime(); got != 7 {
		t.Errorf("CurrentTime after seek = %v, want 7", got)
	}
}

func TestBridge_RateAndTransportCommands(t *testing.T) {
	b, client := startBridge(t)

	if err := b.SetPlaybackRate(0.75); err != nil {
		t.Fatalf("SetPlaybackRate: %v", err)
	}
	if f := readFrame(t, client); f.Type != FrameRate || f.Multiplier != 0.75 {
		t.Errorf("unexpected rate frame: %+v", f)
	}

	if err := b.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if f := readFrame(t, client); f.Type != FramePause {
		t.Errorf("unexpected frame: %+v", f)
	}
	if b.Playing() {
		t.Error("Playing() = true after Pause")
	}

	if err := b.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if f := readFrame(t, client); f.Type != FramePlay {
		t.Errorf("unexpected frame: %+v", f)
	}
	if !b.Playing() {
		t.Error("Playing() = false after Play")
	}
}

func TestBridge_ClosedConnection(t *testing.T) {
	b, _ := startBridge(t)

	if err := b.Close(); err != nil {
		t.Logf("close: %v (ignored)", err)
	}

	if err := b.SeekTo(3, false); err == nil {
		t.Error("SeekTo on closed bridge returned nil error")
	}

	select {
	case <-b.Done():
	case <-time.After(3 * time.Second):
		t.Error("Done() not closed after Close")
	}
}

func TestBridge_DoneOnPeerHangup(t *testing.T) {
	b, client := startBridge(t)

	if err := client.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		t.Fatalf("client close: %v", err)
	}

	select {
	case <-b.Done():
	case <-time.After(3 * time.Second):
		t.Error("Done() not closed after the peer hung up")
	}
}
