package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	visitorapp "github.com/maisgenetica/backend/internal/application/visitor"
)

// VisitorService is the application API used by VisitorHandler
type VisitorService interface {
	Hit(ctx context.Context) (*visitorapp.CountResponse, error)
	Count(ctx context.Context) (*visitorapp.CountResponse, error)
}

// VisitorHandler serves the site visitor counter
type VisitorHandler struct {
	BaseHandler
	service VisitorService
}

// NewVisitorHandler creates a new VisitorHandler
func NewVisitorHandler(service VisitorService) *VisitorHandler {
	return &VisitorHandler{service: service}
}

// Hit godoc
// @ID           countVisit
// @Summary      Count a visit
// @Description  Counts a visit and returns the new total
// @Tags         visitors
// @Produce      json
// @Success      200 {object} dto.Response{data=visitorapp.CountResponse}
// @Router       /visitors [post]
func (h *VisitorHandler) Hit(c *gin.Context) {
	resp, err := h.service.Hit(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Count godoc
// @ID           getVisitorCount
// @Summary      Visitor total
// @Tags         visitors
// @Produce      json
// @Success      200 {object} dto.Response{data=visitorapp.CountResponse}
// @Router       /visitors [get]
func (h *VisitorHandler) Count(c *gin.Context) {
	resp, err := h.service.Count(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
