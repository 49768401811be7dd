package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/recovery/internal/domain/types"
	"github.com/okian/recovery/pkg/logger"
	"github.com/okian/recovery/pkg/metrics"
)

const (
	liveSendBuf      = 16
	liveWriteTimeout = 5 * time.Second
	livePongWait     = 30 * time.Second
	livePingInterval = 20 * time.Second
	liveReadLimit    = 64 << 10
)

// LiveDependencies defines what a live session needs.
type LiveDependencies interface {
	EstimateDependencies
	LiveSessionOpened(ctx context.Context)
	LiveSessionClosed(ctx context.Context)
}

// liveReply answers exactly one inbound message. Seq counts messages from 1.
type liveReply struct {
	Seq      int                     `json:"seq"`
	Estimate *types.EstimateResponse `json:"estimate,omitempty"`
	Error    *errorResponse          `json:"error,omitempty"`
}

// LiveHandler serves the /live websocket.
type LiveHandler struct {
	// base bounds every session; cancelling it closes them all.
	base     context.Context
	deps     LiveDependencies
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewLiveHandler creates a new live handler.
func NewLiveHandler(deps LiveDependencies, l logger.Logger) *LiveHandler {
	return &LiveHandler{
		base: context.Background(),
		deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		logger: l,
	}
}

// HandleLive handles GET /live. Each text message is a JSON EstimateRequest;
// the session evaluates them one at a time and replies in arrival order.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "live upgrade failed", logger.Error(err))
		return
	}

	// The request context ends when the handler returns, so the session
	// hangs off the server-level context instead.
	ctx, cancel := context.WithCancel(types.ContextWithSource(h.base, types.SourceLive))
	s := &liveSession{
		conn:   conn,
		deps:   h.deps,
		logger: h.logger,
		send:   make(chan liveReply, liveSendBuf),
		done:   make(chan struct{}),
		cancel: cancel,
		id:     RequestIDFrom(r.Context()),
	}
	h.deps.LiveSessionOpened(ctx)
	h.logger.Info(ctx, "live session opened", logger.String("requestID", s.id))

	go s.writePump(ctx)
	go s.readPump(ctx)
}

// bind ties future sessions to ctx.
func (h *LiveHandler) bind(ctx context.Context) {
	if ctx != nil {
		h.base = ctx
	}
}

type liveSession struct {
	conn   *websocket.Conn
	deps   LiveDependencies
	logger logger.Logger
	send   chan liveReply
	done   chan struct{}
	cancel context.CancelFunc
	id     string
}

// readPump evaluates inbound messages synchronously. It is the only
// producer on send, so replies keep message order. On exit it closes done.
func (s *liveSession) readPump(ctx context.Context) {
	defer close(s.done)

	s.conn.SetReadLimit(liveReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(livePongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for seq := 1; ; seq++ {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(ctx, "live read ended", logger.String("requestID", s.id), logger.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(livePongWait))
		metrics.RecordLiveMessage()

		reply := s.evaluate(ctx, seq, msg)
		select {
		case s.send <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (s *liveSession) evaluate(ctx context.Context, seq int, msg []byte) liveReply {
	const op = "api.live"
	var req types.EstimateRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		e := WrapKind(op, ErrBadRequest, err)
		return liveReply{Seq: seq, Error: &errorResponse{Code: "bad_request", Message: e.Error()}}
	}
	resp, err := s.deps.Estimate(ctx, req)
	if err != nil {
		_, body := classifyError(op, err)
		return liveReply{Seq: seq, Error: &body}
	}
	if _, err := json.Marshal(resp); err != nil {
		return liveReply{Seq: seq, Error: &errorResponse{Code: "internal_error", Message: Wrap(op, err).Error()}}
	}
	return liveReply{Seq: seq, Estimate: &resp}
}

// writePump owns all data writes and the session lifecycle.
func (s *liveSession) writePump(ctx context.Context) {
	ticker := time.NewTicker(livePingInterval)
	defer func() {
		ticker.Stop()
		s.cancel()
		_ = s.conn.Close()
		s.deps.LiveSessionClosed(ctx)
		s.logger.Info(ctx, "live session closed", logger.String("requestID", s.id))
	}()

	for {
		select {
		case reply := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := s.conn.WriteJSON(reply); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					s.logger.Warn(ctx, "live write failed", logger.String("requestID", s.id), logger.Error(err))
				}
				return
			}
		case <-s.done:
			// Flush replies already produced before closing.
			for {
				select {
				case reply := <-s.send:
					_ = s.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
					if err := s.conn.WriteJSON(reply); err != nil {
						return
					}
				default:
					return
				}
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(liveWriteTimeout))
			return
		}
	}
}
