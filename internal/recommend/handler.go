package recommend

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"petcare-backend/internal/catalog"
	"petcare-backend/internal/llm"
	"petcare-backend/internal/shared/server/middleware"
	"petcare-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the recommendation service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches recommendation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recommendations", h.startRecommendation)
	rg.GET("/recommendations", h.listRecommendations)
	rg.GET("/recommendations/:id", h.getRecommendation)
	rg.POST("/recommendations/fallback", h.fallbackRecommendation)
}

func (h *Handler) startRecommendation(c *gin.Context) {
	var bundle catalog.AnalysisBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must be a JSON analysis bundle", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	run, err := h.Svc.Create(ctx, bundle)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidBundle):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, llm.ErrMissingAPIKey):
			respond.Error(c, http.StatusServiceUnavailable, "configuration_error", "recommendation model is not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start recommendation", nil)
		}
		return
	}

	c.Set("recommendationId", run.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"recommendationId": run.ID,
		"status":           run.Status,
	})
}

func (h *Handler) getRecommendation(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "recommendation id is required", nil)
		return
	}
	if !h.limiter.Allow(runID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	run, err := h.Svc.Get(c.Request.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "recommendation not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch recommendation", nil)
		}
		return
	}

	c.Set("recommendationId", run.ID)
	resp := gin.H{
		"id":         run.ID,
		"petName":    run.PetName,
		"petSpecies": run.PetSpecies,
		"status":     run.Status,
		"createdAt":  run.CreatedAt,
	}
	if run.Model != "" {
		resp["model"] = run.Model
	}
	if run.Status == StatusCompleted && run.Result != nil {
		resp["result"] = run.Result
	}
	if run.Status == StatusFailed {
		if run.ErrorCode != nil {
			resp["errorCode"] = *run.ErrorCode
		}
		if run.ErrorMessage != nil {
			resp["errorMessage"] = *run.ErrorMessage
		}
		if run.ErrorRetryable != nil {
			resp["retryable"] = *run.ErrorRetryable
		}
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) listRecommendations(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list recommendations", nil)
		return
	}

	resp := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		item := gin.H{
			"recommendationId": run.ID,
			"petName":          run.PetName,
			"petSpecies":       run.PetSpecies,
			"status":           run.Status,
			"createdAt":        run.CreatedAt,
		}
		if run.Status == StatusCompleted && run.Result != nil {
			item["foodCount"] = len(run.Result.FoodRecommendations)
			item["serviceCount"] = len(run.Result.ServiceRecommendations)
		}
		if run.Status == StatusFailed && run.ErrorCode != nil {
			item["errorCode"] = *run.ErrorCode
		}
		resp = append(resp, item)
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) fallbackRecommendation(c *gin.Context) {
	var bundle catalog.AnalysisBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must be a JSON analysis bundle", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	result, err := h.Svc.Fallback(ctx, bundle)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidBundle):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build fallback recommendation", nil)
		}
		return
	}

	respond.OK(c, result)
}
