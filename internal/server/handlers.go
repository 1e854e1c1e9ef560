package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"camtrigger/internal/supervisor"
)

// Handler はHTTPエンドポイントの実装
type Handler struct {
	controller Controller
	clips      ClipLister
	hub        *Hub
}

// ErrorResponse はエラー応答
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// saveRequest は録画要求のクエリパラメータ
type saveRequest struct {
	DurationMS int `form:"duration_ms" binding:"omitempty,gt=0"`
}

func (h *Handler) register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	api.GET("/status", h.GetStatus)
	api.POST("/save", h.Save)
	api.GET("/clips", h.GetClips)
	api.GET("/events", h.Events)
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// GetStatus は録画状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

// Save は録画開始エンドポイントの実装
func (h *Handler) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrorResponse("invalid_request", err.Error()))
		return
	}

	line := "save"
	if req.DurationMS > 0 {
		line = fmt.Sprintf("save %d", req.DurationMS)
	}

	reply, err := h.controller.Submit(c.Request.Context(), line)
	if err != nil {
		if errors.Is(err, supervisor.ErrNotRunning) {
			c.JSON(http.StatusServiceUnavailable, newErrorResponse("draining", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, newErrorResponse("submit_failed", err.Error()))
		return
	}

	c.JSON(statusForOutcome(reply.Outcome), reply)
}

// GetClips は保存済みクリップ一覧エンドポイントの実装
func (h *Handler) GetClips(c *gin.Context) {
	clips, err := h.clips.ListClips()
	if err != nil {
		c.JSON(http.StatusInternalServerError, newErrorResponse("list_failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"clips": clips})
}

// Events は録画イベントのWebSocket配信エンドポイントの実装
func (h *Handler) Events(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// statusForOutcome は save の結果をHTTPステータスに変換する
func statusForOutcome(outcome supervisor.Outcome) int {
	switch outcome {
	case supervisor.OutcomeStarted:
		return http.StatusAccepted
	case supervisor.OutcomeDebounced:
		return http.StatusTooManyRequests
	case supervisor.OutcomeBusy:
		return http.StatusConflict
	case supervisor.OutcomeRefused:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
}
