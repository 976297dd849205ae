// Package handler holds the gin handlers of the public and admin API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
	"github.com/maisgenetica/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides the response helpers shared by all handlers
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// HandleError maps an error to a response. Validation failures list their
// fields, domain errors keep their message, and anything else is logged
// and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		middleware.HandleValidationError(c, err)
		return
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		h.Error(c, dto.ErrCodePayloadTooLarge, middleware.PayloadTooLargeMessage)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "Erro interno. Tente novamente mais tarde.")
}

// bindError reports a failed ShouldBind*. Field failures list their fields;
// an unreadable body is a plain bad request.
func (h *BaseHandler) bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, err)
		return
	}
	h.BadRequest(c, "Requisição inválida")
}

// parseID reads the :id path parameter
func (h *BaseHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Identificador inválido")
		return uuid.Nil, false
	}
	return id, true
}
