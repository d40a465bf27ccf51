package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"alerts-service/internal/identity"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
	"alerts-service/internal/registry"
)

// Gateway turns inbound upgrade requests into registered connections.
// Authentication happens before the handshake completes: a request with
// a missing or rejected credential never produces a duplex channel.
type Gateway struct {
	auth        identity.Authenticator
	registry    *registry.Registry
	logger      *logging.Logger
	pongTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewGateway(auth identity.Authenticator, reg *registry.Registry, logger *logging.Logger, pongTimeout time.Duration) *Gateway {
	return &Gateway{
		auth:        auth,
		registry:    reg,
		logger:      logger,
		pongTimeout: pongTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// clients connect from the platform's own web app; origin
			// enforcement lives at the edge proxy
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle is the gin handler for the upgrade endpoint.
func (g *Gateway) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if cookie, err := c.Cookie("session"); err == nil {
			token = cookie
		}
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credential"})
		return
	}

	// the one suspension point before the handshake; other upgrades keep
	// flowing while this resolves
	user, err := g.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		g.logger.Errorf("Credential verification failed: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "verification failed"})
		return
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
		return
	}

	wsConn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		g.logger.Errorf("Upgrade failed for user %d: %v", user.ID, err)
		return
	}

	conn := newConn(user.ID, wsConn)
	if !g.registry.Add(user.ID, conn) {
		_ = conn.Close()
		return
	}

	if err := conn.WriteEnvelope(models.NewEnvelope(models.ConnectedPayload{
		Message: "connection established",
	})); err != nil {
		g.logger.Errorf("Failed to send connected frame to user %d: %v", user.ID, err)
	}

	go g.readLoop(conn)
}

// inboundFrame is the only shape clients are expected to send.
type inboundFrame struct {
	Type string `json:"type"`
}

// readLoop services one connection until it dies. Every inbound frame
// extends the read deadline; a connection silent past the pong timeout
// is closed and removed through the same path as a clean close.
func (g *Gateway) readLoop(conn *conn) {
	defer func() {
		_ = conn.Close()
		g.registry.Remove(conn.UserID(), conn)
	}()

	for {
		_ = conn.ws.SetReadDeadline(time.Now().Add(g.pongTimeout))
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warnf("Connection error for user %d: %v", conn.UserID(), err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.logger.Warnf("Dropping unparseable frame from user %d: %v", conn.UserID(), err)
			continue
		}

		switch frame.Type {
		case "ping":
			if err := conn.WriteEnvelope(models.NewEnvelope(models.PongPayload{})); err != nil {
				g.logger.Errorf("Failed to send pong to user %d: %v", conn.UserID(), err)
				return
			}
		default:
			g.logger.Warnf("Dropping unknown frame type %q from user %d", frame.Type, conn.UserID())
		}
	}
}
