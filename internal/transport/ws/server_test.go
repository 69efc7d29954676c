package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"worldgen/internal/world"
)

type staticSource struct{}

func (staticSource) Region(ctx context.Context, rx, rz int) (*world.Region, error) {
	if rx > 100 {
		return nil, errors.New("out of bounds")
	}
	return world.NewRegion(world.RegionCoord{X: rx, Z: rz}, 16, 1, nil), nil
}

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(staticSource{}, log.New(&bytes.Buffer{}, "", 0)).Handler())
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) Reply {
	t.Helper()
	kind, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	var reply Reply
	if err := json.Unmarshal(msg, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return reply
}

func TestServerStreamsSnapshot(t *testing.T) {
	conn := dial(t)
	if err := conn.WriteJSON(Request{RX: -2, RZ: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply := readReply(t, conn)
	if reply.Error != "" || reply.RX != -2 || reply.RZ != 3 {
		t.Fatalf("unexpected reply %+v", reply)
	}
	kind, data, err := conn.ReadMessage()
	if err != nil || kind != websocket.BinaryMessage {
		t.Fatalf("snapshot frame: kind=%d err=%v", kind, err)
	}
	if len(data) != reply.Bytes {
		t.Fatalf("snapshot has %d bytes, reply said %d", len(data), reply.Bytes)
	}
	region, header, err := world.ReadSnapshot(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if header.Digest != reply.Digest || region.Coord != (world.RegionCoord{X: -2, Z: 3}) {
		t.Fatalf("snapshot header %+v does not match reply %+v", header, reply)
	}
}

func TestServerReportsErrors(t *testing.T) {
	conn := dial(t)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.Error != "malformed request" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if err := conn.WriteJSON(Request{RX: 500}); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); !strings.Contains(reply.Error, "out of bounds") {
		t.Fatalf("unexpected reply %+v", reply)
	}
	// the connection stays usable after errors
	if err := conn.WriteJSON(Request{RX: 1, RZ: 1}); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.Error != "" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}
