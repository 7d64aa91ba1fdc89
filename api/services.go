package api

import (
	"net/http"
	"time"

	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/ekrukov/slotbooking/internal/repository"
	"github.com/ekrukov/slotbooking/internal/service/catalog"
	"github.com/gin-gonic/gin"
)

type ServiceHandler struct {
	catalog catalog.ServiceUseCase
}

type updateServiceRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	PriceCents      *int64  `json:"price_cents"`
	DurationMinutes *int    `json:"duration_minutes"`
	IsActive        *bool   `json:"is_active"`
}

type serviceResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
}

func toServiceResponse(s *domain.Service) serviceResponse {
	return serviceResponse{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		PriceCents:      s.PriceCents,
		DurationMinutes: s.DurationMinutes,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

func NewServiceHandler(catalog catalog.ServiceUseCase) *ServiceHandler {
	return &ServiceHandler{catalog: catalog}
}

func (h *ServiceHandler) Register(public, admin *gin.RouterGroup) {
	public.GET("", h.list)
	public.GET("/:id", h.get)
	admin.POST("", h.create)
	admin.PATCH("/:id", h.update)
	admin.DELETE("/:id", h.deactivate)
}

func (h *ServiceHandler) list(c *gin.Context) {
	services, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]serviceResponse, 0, len(services))
	for i := range services {
		out = append(out, toServiceResponse(&services[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ServiceHandler) get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	service, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceResponse(service))
}

func (h *ServiceHandler) create(c *gin.Context) {
	var req catalog.CreateServiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	service, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toServiceResponse(service))
}

func (h *ServiceHandler) update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req updateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	service, err := h.catalog.Update(c.Request.Context(), id, repository.ServiceUpdate{
		Title:           req.Title,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceResponse(service))
}

func (h *ServiceHandler) deactivate(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	service, err := h.catalog.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceResponse(service))
}
