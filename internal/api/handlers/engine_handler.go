package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/service"
)

type EngineHandler struct {
	service *service.EvaluationService
}

func NewEngineHandler(service *service.EvaluationService) *EngineHandler {
	return &EngineHandler{service: service}
}

func parseProductIDs(c *gin.Context) []string {
	raw := strings.TrimSpace(c.Query("product_ids"))
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func (h *EngineHandler) parseAlertFilter(c *gin.Context) domain.AlertFilter {
	filter := domain.AlertFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}

	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	filter.ProductIDs = parseProductIDs(c)

	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		if t, ok := domain.ParseAlertType(raw); ok {
			filter.Type = string(t)
		}
	}

	if include := strings.ToLower(strings.TrimSpace(c.Query("include_resolved"))); include == "true" || include == "1" {
		filter.IncludeResolved = true
	}

	return filter
}

// GetStatuses returns the current classification for all (or the requested)
// products.
func (h *EngineHandler) GetStatuses(c *gin.Context) {
	statuses, err := h.service.GetStatuses(c.Request.Context(), parseProductIDs(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch statuses", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": statuses,
		"total": len(statuses),
	})
}

// GetSummary returns product counts per stock status.
func (h *EngineHandler) GetSummary(c *gin.Context) {
	summaries, err := h.service.GetSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// GetRecommendations returns the reorder recommendations from the latest run.
func (h *EngineHandler) GetRecommendations(c *gin.Context) {
	recs, err := h.service.GetRecommendations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recommendations", "details": err.Error()})
		return
	}
	if recs == nil {
		recs = make([]domain.ReplenishmentRecommendation, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": recs,
		"total": len(recs),
	})
}

// GetForecast returns the demand projection for one product. An insufficient
// history is a normal 200 response with confidence "insufficient"; the
// dashboard renders it as "forecast unavailable".
func (h *EngineHandler) GetForecast(c *gin.Context) {
	productID := strings.TrimSpace(c.Param("product_id"))
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}

	periodsAhead, _ := strconv.Atoi(c.DefaultQuery("periods_ahead", "1"))
	if periodsAhead <= 0 {
		periodsAhead = 1
	}

	forecast, err := h.service.GetForecast(c.Request.Context(), productID, periodsAhead)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to compute forecast", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, forecast)
}

// GetAlerts lists alerts, open ones by default.
func (h *EngineHandler) GetAlerts(c *gin.Context) {
	filter := h.parseAlertFilter(c)
	alerts, total, err := h.service.GetAlerts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts", "details": err.Error()})
		return
	}
	if alerts == nil {
		alerts = make([]domain.Alert, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": alerts,
		"total": total,
	})
}

// Evaluate triggers a full evaluation run on demand.
func (h *EngineHandler) Evaluate(c *gin.Context) {
	batch, err := h.service.RunEvaluation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// EvaluateProduct triggers an evaluation for a single product, typically
// after a stock mutation.
func (h *EngineHandler) EvaluateProduct(c *gin.Context) {
	productID := strings.TrimSpace(c.Param("product_id"))
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}

	batch, err := h.service.EvaluateProduct(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "evaluation failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, batch)
}
