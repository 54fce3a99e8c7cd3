package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-gin-atomic-tickets/internal/model"
	"go-gin-atomic-tickets/internal/service"
	apperrors "go-gin-atomic-tickets/pkg/app_errors"
	"go-gin-atomic-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.GetEvents)
		router.GET("events/:id", h.GetEvent)
		router.POST("events", h.CreateEvent)
		router.POST("events/:id/open", h.OpenForSale)
	}
}

func (h *EventHandler) GetEvents(c *gin.Context) {
	events, err := h.service.List(c)
	if err != nil {
		h.handleEventError(c, err, "GetEvents")
		return
	}

	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleEventError(c, apperrors.ErrInvalidInput, "GetEvent")
		return
	}

	event, err := h.service.GetByID(c, id)
	if err != nil {
		h.handleEventError(c, err, "GetEvent")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	event := &model.Event{
		Name:         req.Name,
		TotalTickets: req.TotalTickets,
		TicketsLeft:  req.TotalTickets,
		Active:       active,
	}

	created, err := h.service.Create(c, event)
	if err != nil {
		h.handleEventError(c, err, "CreateEvent")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *EventHandler) OpenForSale(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleEventError(c, apperrors.ErrInvalidInput, "OpenForSale")
		return
	}

	if err := h.service.OpenForSale(c, id); err != nil {
		h.handleEventError(c, err, "OpenForSale")
		return
	}

	c.Status(http.StatusOK)
}

func (h *EventHandler) handleEventError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
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
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
