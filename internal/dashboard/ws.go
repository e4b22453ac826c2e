package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/model"
)

// WriteTimeout bounds each snapshot write to a websocket subscriber.
const WriteTimeout = 5 * time.Second

// wsSubscriber pushes snapshots over a websocket connection.
type wsSubscriber struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *wsSubscriber) Send(ctx context.Context, snap model.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, snap)
}

func (s *wsSubscriber) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "closed")
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.cfg.AllowedOrigins) > 0 {
		opts.OriginPatterns = s.cfg.AllowedOrigins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := &wsSubscriber{conn: conn, timeout: WriteTimeout}
	if err := s.bc.Subscribe(ctx, sub); err != nil {
		klog.V(2).InfoS("dashboard subscribe failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	klog.V(1).InfoS("dashboard subscriber connected", "remote", r.RemoteAddr, "live", s.bc.Len())

	// Client messages are ignored; the read loop only detects disconnect.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.bc.Unsubscribe(sub)
	conn.Close(websocket.StatusNormalClosure, "closed")
	klog.V(1).InfoS("dashboard subscriber disconnected", "remote", r.RemoteAddr, "live", s.bc.Len())
}
