package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tunesync-server/internal/auth"
	"github.com/vovakirdan/tunesync-server/internal/config"
	"github.com/vovakirdan/tunesync-server/internal/core"
	"github.com/vovakirdan/tunesync-server/internal/proto"
	"github.com/vovakirdan/tunesync-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// Each connection gets a read loop (inbound frames to service calls)
// and a write loop (core events to outbound frames).
type WSHandler struct {
	deps Deps
	cfg  *config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(deps Deps, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{deps: deps, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), "")
	h.deps.Hub.Register(client)
	defer h.deps.Hub.Unregister(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := &wsSession{
		handler:   h,
		client:    client,
		chatLimit: newRateLimiter(h.cfg.ChatRateLimit),
	}
	stop := make(chan struct{})
	defer close(stop)
	session.chatLimit.startReset(stop)

	errCh := make(chan error, 2)
	go func() {
		errCh <- session.readLoop(ctx, conn)
	}()
	go func() {
		errCh <- session.writeLoop(ctx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// wsSession is the per-connection state: the core client plus the chat
// rate limiter.
type wsSession struct {
	handler   *WSHandler
	client    *core.Client
	chatLimit *rateLimiter
}

func (s *wsSession) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			s.handler.log.Warn().Err(err).Str("client_id", s.client.ID).Msg("read ws inbound")
			return err
		}

		protoErr, err := s.handler.handleInbound(ctx, s, inbound)
		if err != nil {
			s.handler.log.Warn().Err(err).Str("client_id", s.client.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (s *wsSession) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case event, ok := <-s.client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				s.handler.log.Error().Err(err).Str("client_id", s.client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// resolveIdentity picks the listener identity for a hello frame: a
// valid token wins, then the announced display name, then the
// connection id.
func (h *WSHandler) resolveIdentity(hello proto.HelloData, fallback string) (string, *proto.Error) {
	if hello.Token != "" {
		claims, err := auth.ValidateToken(h.deps.JWT, hello.Token)
		if err != nil {
			return "", &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}
		}
		return claims.Listener, nil
	}
	if hello.User != "" {
		return hello.User, nil
	}
	return fallback, nil
}
