// Package gateway binds the coordination services to live websocket
// connections: one authenticated session per connection, inbound
// frames decoded into the closed protocol union, outbound events
// delivered through a per-session buffered sink.
package gateway

import (
	goerrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dchat/auth"
	"dchat/domain"
	apperrors "dchat/errors"
	"dchat/services"
	"dchat/sink"
)

type Gateway struct {
	log             *slog.Logger
	tokens          *auth.TokenIssuer
	presence        *services.PresenceService
	coordinator     *services.RoomCoordinator
	dispatcher      *services.MessageDispatcher
	validation      *services.ValidationService
	metrics         *Metrics
	upgrader        websocket.Upgrader
	bufferSize      int
	deliveryTimeout time.Duration
}

func NewGateway(log *slog.Logger, tokens *auth.TokenIssuer,
	presence *services.PresenceService, coordinator *services.RoomCoordinator,
	dispatcher *services.MessageDispatcher, validation *services.ValidationService,
	metrics *Metrics, bufferSize int, deliveryTimeout time.Duration) *Gateway {
	return &Gateway{
		log:         log,
		tokens:      tokens,
		presence:    presence,
		coordinator: coordinator,
		dispatcher:  dispatcher,
		validation:  validation,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from the separately-hosted UI.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize:      bufferSize,
		deliveryTimeout: deliveryTimeout,
	}
}

// HandleWS upgrades one client connection. The session token from the
// wallet handshake is required before the upgrade; an anonymous
// connection never reaches the registry.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := g.tokens.Validate(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	session := &session{
		id:      domain.SessionID(uuid.NewString()),
		userID:  domain.UserID(claims.UserID),
		conn:    conn,
		sink:    sink.NewSessionSink(g.bufferSize),
		gateway: g,
	}
	g.metrics.ActiveSessions.Inc()
	defer g.metrics.ActiveSessions.Dec()

	session.run(r.Context())
}

// safeMessage renders an error for the originating session. Store and
// collaborator failures are reported without internal detail; taxonomy
// errors carry client-renderable text.
func safeMessage(err error) string {
	if err == nil {
		return ""
	}
	if goerrors.Is(apperrors.Classify(err), apperrors.ErrUnavailable) {
		return "service unavailable, please retry"
	}
	return err.Error()
}
