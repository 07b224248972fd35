package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inspiredanalyst/submanager-server/internal/models"
	"github.com/inspiredanalyst/submanager-server/internal/service"
	"github.com/inspiredanalyst/submanager-server/internal/sync"
)

// Handler holds the API handlers
type Handler struct {
	svc service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(AuthMiddleware())
	{
		authed.GET("/status", h.Status)

		authed.GET("/sheets", h.ListSheets)
		authed.POST("/sheets", h.CreateSheet)

		authed.GET("/sheets/:name/records", h.ListRecords)
		authed.POST("/sheets/:name/records", h.AddRecord)
		authed.DELETE("/sheets/:name/records/:id", h.DeleteRecord)
		authed.POST("/sheets/:name/records/:id/renew", h.RenewRecord)
		authed.GET("/sheets/:name/records/:id/invoice", h.Invoice)

		authed.POST("/sheets/:name/refresh", h.Refresh)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status(c.Request.Context()))
}

func (h *Handler) ListSheets(c *gin.Context) {
	resp, err := h.svc.ListSheets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreateSheet(c *gin.Context) {
	var req models.CreateSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.CreateSheet(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListRecords(c *gin.Context) {
	resp, err := h.svc.ListRecords(
		c.Request.Context(),
		c.Param("name"),
		c.Query("search"),
		c.Query("filter"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) AddRecord(c *gin.Context) {
	var req models.AddRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.AddRecord(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// DeleteRecord deletes a record. Destructive-action confirmation happens
// in the browser before this endpoint is called; there is no undo.
func (h *Handler) DeleteRecord(c *gin.Context) {
	synced, err := h.svc.DeleteRecord(c.Request.Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "synced": synced})
}

func (h *Handler) RenewRecord(c *gin.Context) {
	resp, err := h.svc.RenewRecord(c.Request.Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Invoice(c *gin.Context) {
	resp, err := h.svc.Invoice(c.Request.Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.svc.Refresh(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPIN):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status: "error", Code: "INVALID_PIN", Message: "Invalid PIN",
		})
	case errors.Is(err, service.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status: "error", Code: "RECORD_NOT_FOUND", Message: err.Error(),
		})
	case errors.Is(err, service.ErrSheetExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status: "error", Code: "SHEET_EXISTS", Message: err.Error(),
		})
	case errors.Is(err, service.ErrInvalidSheet),
		errors.Is(err, service.ErrUnknownPlan),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrNoInvoice):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "INVALID_REQUEST", Message: err.Error(),
		})
	case errors.Is(err, sync.ErrUnavailable):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Status: "error", Code: "SYNC_FAILED", Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status: "error", Code: "INTERNAL_ERROR", Message: err.Error(),
		})
	}
}
