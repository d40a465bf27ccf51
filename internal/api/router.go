package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alerts-service/internal/config"
	"alerts-service/internal/identity"
	"alerts-service/internal/logging"
	"alerts-service/internal/ws"
)

func NewRouter(cfg config.Config, logger *logging.Logger, h *Handler, gateway *ws.Gateway, auth identity.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// the gateway does its own credential check before upgrading
	r.GET("/ws", gateway.Handle)

	api := r.Group(cfg.API.BasePath)
	api.Use(AuthMiddleware(auth, logger))
	{
		api.GET("/alerts/project/:project_id", h.ListProjectAlerts)
		api.POST("/alerts/:id/read", h.MarkAlertRead)

		api.GET("/automation/:project_id", h.GetAutomationConfig)
		api.PUT("/automation/:project_id", h.UpdateAutomationConfig)

		api.POST("/evaluate/budget", h.EvaluateBudget)
		api.POST("/evaluate/variance", h.EvaluateVariance)

		api.POST("/telegram/register", h.RegisterTelegram)
	}

	return r
}
