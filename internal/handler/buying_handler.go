package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-gin-atomic-tickets/internal/cache"
	"go-gin-atomic-tickets/internal/model"
	"go-gin-atomic-tickets/internal/service"
	apperrors "go-gin-atomic-tickets/pkg/app_errors"
	"go-gin-atomic-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "X-Idempotency-Key"

type BuyingHandler struct {
	service service.BuyingService
}

func NewBuyingHandler(service service.BuyingService) *BuyingHandler {
	return &BuyingHandler{service: service}
}

func (h *BuyingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1/buying")
	{
		router.GET("health", h.HealthCheck)
		router.POST("events/:id/purchase", h.Purchase)
		router.POST("events/:id/naive-purchase", h.NaivePurchase)
		router.POST("events/:id/reset", h.ResetEvent)
	}
}

func (h *BuyingHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (h *BuyingHandler) Purchase(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleBuyingError(c, apperrors.ErrInvalidInput, "Purchase")
		return
	}

	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if idempotencyKey == "" {
		h.handleBuyingError(c, apperrors.ErrMissingIdempotencyKey, "Purchase")
		return
	}

	var req model.PurchaseRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.Purchase(c, eventID, req.UserID, idempotencyKey)
	if err != nil {
		h.handleBuyingError(c, err, "Purchase")
		return
	}

	switch result {
	case cache.AdmissionAdmitted:
		c.JSON(http.StatusCreated, model.PurchaseResponse{Status: "purchased", EventID: eventID})
	case cache.AdmissionReplayed:
		// 重放不保證回傳原始 booking 內容，只回報「已購買過」
		c.JSON(http.StatusOK, model.PurchaseResponse{Status: "already_purchased", EventID: eventID})
	case cache.AdmissionSoldOut:
		c.JSON(http.StatusConflict, gin.H{
			"error": "Sold out",
		})
	case cache.AdmissionUnknownEvent:
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found",
		})
	default:
		h.handleBuyingError(c, apperrors.ErrEngineUnavailable, "Purchase")
	}
}

func (h *BuyingHandler) NaivePurchase(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleBuyingError(c, apperrors.ErrInvalidInput, "NaivePurchase")
		return
	}

	var req model.PurchaseRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	booking, err := h.service.NaivePurchase(c, eventID, req.UserID, uuid.New().String())
	if err != nil {
		h.handleBuyingError(c, err, "NaivePurchase")
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *BuyingHandler) ResetEvent(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleBuyingError(c, apperrors.ErrInvalidInput, "ResetEvent")
		return
	}

	event, err := h.service.ResetEvent(c, eventID)
	if err != nil {
		h.handleBuyingError(c, err, "ResetEvent")
		return
	}

	c.JSON(http.StatusOK, event)
}

// Helper functions

func (h *BuyingHandler) handleBuyingError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrMissingIdempotencyKey):
		log.Warn("Missing idempotency key")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "X-Idempotency-Key header is required",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found",
		})
	case errors.Is(err, apperrors.ErrSoldOut):
		log.Warn("Sold out")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Sold out",
		})
	case errors.Is(err, apperrors.ErrEngineUnavailable), errors.Is(err, apperrors.ErrQueueUnavailable):
		// 結果未知：告訴客戶端帶同一個冪等 key 重試是安全的
		log.Error("Unknown outcome")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Outcome unknown, retry with the same idempotency key",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
