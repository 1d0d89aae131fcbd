package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dental-clinic-server/internal/apperrors"
)

// ExposeDetails controls whether internal error text is echoed in the details
// field. main turns it off in production.
var ExposeDetails = true

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Details string      `json:"details,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SuccessWithMeta sends a success response with pagination or filter metadata.
func SuccessWithMeta(c *gin.Context, message string, data, meta interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Success: false,
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// ValidationFailed sends a 400 listing every violated rule; error holds the first one.
func ValidationFailed(c *gin.Context, ve *apperrors.ValidationError) {
	c.JSON(http.StatusBadRequest, ResponseData{
		Success: false,
		Error:   ve.Primary(),
		Errors:  ve.Problems,
	})
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *gin.Context, errorMessage string) {
	Error(c, http.StatusConflict, errorMessage)
}

// InternalServerError sends a 500 with a generic message. err is only shown when
// ExposeDetails is on.
func InternalServerError(c *gin.Context, errorMessage string, err error) {
	failure(c, http.StatusInternalServerError, errorMessage, err)
}

// BadGateway sends a 502 for failures of a collaborator such as the database.
func BadGateway(c *gin.Context, errorMessage string, err error) {
	failure(c, http.StatusBadGateway, errorMessage, err)
}

func failure(c *gin.Context, status int, errorMessage string, err error) {
	body := ResponseData{Success: false, Error: errorMessage}
	if err != nil {
		_ = c.Error(err)
		if ExposeDetails {
			body.Details = err.Error()
		}
	}
	c.JSON(status, body)
}

// HandleError maps a domain error onto a response. notFound is the message used
// when err wraps apperrors.ErrNotFound.
func HandleError(c *gin.Context, err error, notFound string) {
	if ve, ok := apperrors.AsValidation(err); ok {
		ValidationFailed(c, ve)
		return
	}
	switch {
	case errors.Is(err, apperrors.ErrMissingFields), errors.Is(err, apperrors.ErrInvalidStatus):
		_ = c.Error(err)
		BadRequest(c, apperrors.Public(err))
	case errors.Is(err, apperrors.ErrNotFound):
		NotFound(c, notFound)
	case errors.Is(err, apperrors.ErrUpstream):
		BadGateway(c, "Storage service unavailable", err)
	default:
		InternalServerError(c, "Internal server error", err)
	}
}
