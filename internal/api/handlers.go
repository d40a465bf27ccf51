package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alerts-service/internal/db"
	"alerts-service/internal/dispatcher"
	"alerts-service/internal/logging"
	"alerts-service/internal/models"
	"alerts-service/internal/pipeline"
)

type Handler struct {
	db         *db.DB
	logger     *logging.Logger
	pipeline   *pipeline.Pipeline
	dispatcher *dispatcher.Dispatcher
}

func NewHandler(database *db.DB, logger *logging.Logger, pl *pipeline.Pipeline, disp *dispatcher.Dispatcher) *Handler {
	return &Handler{db: database, logger: logger, pipeline: pl, dispatcher: disp}
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get("user"); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

func (h *Handler) ListProjectAlerts(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	alerts, total, err := h.db.ListAlertsByProject(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list alerts for project %d: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": total})
}

func (h *Handler) MarkAlertRead(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credential"})
		return
	}

	if err := h.db.MarkAlertRead(c.Request.Context(), alertID, user.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.logger.Errorf("Failed to mark alert %s read: %v", alertID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark alert read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *Handler) GetAutomationConfig(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id"})
		return
	}

	cfg, err := h.db.GetAutomationConfig(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Errorf("Failed to get automation config for project %d: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get automation config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type automationConfigUpdate struct {
	Enabled              *bool    `json:"enabled"`
	WarningThresholdPct  *float64 `json:"warning_threshold_pct"`
	CriticalThresholdPct *float64 `json:"critical_threshold_pct"`
	DefaultAssigneeID    *int64   `json:"default_assignee_id"`
	TaskPriority         *string  `json:"task_priority"`
	TaskDueOffsetDays    *int     `json:"task_due_offset_days"`
}

func (h *Handler) UpdateAutomationConfig(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id"})
		return
	}

	var req automationConfigUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid automation config body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cfg, err := h.db.GetAutomationConfig(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Errorf("Failed to load automation config for project %d: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load automation config"})
		return
	}

	changes := map[string]interface{}{}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
		changes["enabled"] = *req.Enabled
	}
	if req.WarningThresholdPct != nil {
		cfg.WarningThresholdPct = *req.WarningThresholdPct
		changes["warning_threshold_pct"] = *req.WarningThresholdPct
	}
	if req.CriticalThresholdPct != nil {
		cfg.CriticalThresholdPct = *req.CriticalThresholdPct
		changes["critical_threshold_pct"] = *req.CriticalThresholdPct
	}
	if req.DefaultAssigneeID != nil {
		cfg.DefaultAssigneeID = req.DefaultAssigneeID
		changes["default_assignee_id"] = *req.DefaultAssigneeID
	}
	if req.TaskPriority != nil {
		cfg.TaskPriority = *req.TaskPriority
		changes["task_priority"] = *req.TaskPriority
	}
	if req.TaskDueOffsetDays != nil {
		cfg.TaskDueOffsetDays = *req.TaskDueOffsetDays
		changes["task_due_offset_days"] = *req.TaskDueOffsetDays
	}

	if err := h.db.UpsertAutomationConfig(c.Request.Context(), cfg); err != nil {
		h.logger.Errorf("Failed to save automation config for project %d: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save automation config"})
		return
	}

	// tell whoever is watching; push failures never fail the update
	if members, err := h.db.ProjectMemberIDs(c.Request.Context(), projectID); err != nil {
		h.logger.Errorf("Failed to list members of project %d: %v", projectID, err)
	} else {
		h.dispatcher.SendToUsers(members, models.NewEnvelope(models.AutomationConfigUpdatedPayload{
			ProjectID: projectID,
			Changes:   changes,
		}))
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) EvaluateBudget(c *gin.Context) {
	var snap models.BudgetSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		h.logger.Errorf("Invalid budget snapshot: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alerts, err := h.pipeline.HandleBudgetUpdate(c.Request.Context(), snap)
	if err != nil {
		h.logger.Errorf("Budget evaluation failed for project %d: %v", snap.ProjectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "emitted": len(alerts)})
}

func (h *Handler) EvaluateVariance(c *gin.Context) {
	var snap models.VarianceSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		h.logger.Errorf("Invalid variance snapshot: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alerts, err := h.pipeline.HandleQuantityUpdate(c.Request.Context(), snap)
	if err != nil {
		h.logger.Errorf("Variance evaluation failed for project %d: %v", snap.ProjectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "emitted": len(alerts)})
}

func (h *Handler) RegisterTelegram(c *gin.Context) {
	type telegramRequest struct {
		ChatID int64 `json:"chat_id" binding:"required"`
	}

	var req telegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid telegram registration: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credential"})
		return
	}

	if err := h.db.RegisterTelegramChat(c.Request.Context(), user.ID, req.ChatID); err != nil {
		h.logger.Errorf("Failed to register telegram chat for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register chat"})
		return
	}
	h.logger.Infof("Registered telegram chat %d for user %d", req.ChatID, user.ID)
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}
