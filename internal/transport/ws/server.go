// Package ws streams generated regions to websocket clients as compressed
// snapshots.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"worldgen/internal/world"
)

// RegionSource supplies generated regions.
type RegionSource interface {
	Region(ctx context.Context, rx, rz int) (*world.Region, error)
}

// Request asks for one region.
type Request struct {
	RX int `json:"rx"`
	RZ int `json:"rz"`
}

// Reply is sent as a text frame ahead of every snapshot, or alone on error.
// The snapshot follows as a binary frame when Error is empty.
type Reply struct {
	RX     int    `json:"rx"`
	RZ     int    `json:"rz"`
	Digest string `json:"digest,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
	Error  string `json:"error,omitempty"`
}

type frame struct {
	kind int
	data []byte
}

type Server struct {
	source RegionSource
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(source RegionSource, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "ws ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Server{
		source: source,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan frame, 8)

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case f := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
					if err := conn.WriteMessage(f.kind, f.data); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req Request
			if err := json.Unmarshal(msg, &req); err != nil {
				s.send(ctx, out, Reply{Error: "malformed request"}, nil)
				continue
			}
			reply, snapshot := s.serve(ctx, req)
			if !s.send(ctx, out, reply, snapshot) {
				return
			}
		}
	}
}

func (s *Server) serve(ctx context.Context, req Request) (Reply, []byte) {
	reply := Reply{RX: req.RX, RZ: req.RZ}
	start := time.Now()
	region, err := s.source.Region(ctx, req.RX, req.RZ)
	if err != nil {
		s.log.Printf("region (%d,%d) failed: %v", req.RX, req.RZ, err)
		reply.Error = err.Error()
		return reply, nil
	}
	var buf bytes.Buffer
	if err := world.WriteSnapshot(&buf, region); err != nil {
		s.log.Printf("snapshot (%d,%d) failed: %v", req.RX, req.RZ, err)
		reply.Error = err.Error()
		return reply, nil
	}
	reply.Digest = region.Digest()
	reply.Bytes = buf.Len()
	s.log.Printf("served region (%d,%d) %d bytes in %s", req.RX, req.RZ, buf.Len(), time.Since(start))
	return reply, buf.Bytes()
}

func (s *Server) send(ctx context.Context, out chan<- frame, reply Reply, snapshot []byte) bool {
	b, err := json.Marshal(reply)
	if err != nil {
		return false
	}
	frames := []frame{{kind: websocket.TextMessage, data: b}}
	if snapshot != nil {
		frames = append(frames, frame{kind: websocket.BinaryMessage, data: snapshot})
	}
	for _, f := range frames {
		select {
		case <-ctx.Done():
			return false
		case out <- f:
		}
	}
	return true
}
