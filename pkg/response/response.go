package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the envelope alongside the HTTP status
const (
	CodeOK              = 0
	CodeBadRequest      = -1
	CodeUnauthorized    = -1001
	CodeForbidden       = -1002
	CodeNotFound        = -1003
	CodeConflict        = -1004
	CodePaymentRequired = -1005
	CodeRateLimited     = -1006
	CodeUpstream        = -1007
	CodeInternal        = -1
)

// Response is the standard API response structure
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func send(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	send(c, http.StatusOK, CodeOK, "success", data)
}

// Created sends a 201 created response
func Created(c *gin.Context, data interface{}) {
	send(c, http.StatusCreated, CodeOK, "created", data)
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, code int, message string) {
	send(c, statusCode, code, message, nil)
}

// Status sends an error response whose envelope code is derived from the
// HTTP status. Used to pass provider statuses through unchanged.
func Status(c *gin.Context, statusCode int, message string) {
	Error(c, statusCode, codeFor(statusCode), message)
}

// BadRequest sends a 400 error response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized sends a 401 error response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// PaymentRequired sends a 402 error response
func PaymentRequired(c *gin.Context, message string) {
	Error(c, http.StatusPaymentRequired, CodePaymentRequired, message)
}

// Forbidden sends a 403 error response
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message)
}

// NotFound sends a 404 error response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// Conflict sends a 409 error response
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, CodeConflict, message)
}

// TooManyRequests sends a 429 error response
func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, CodeRateLimited, message)
}

// InternalError sends a 500 error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternal, message)
}

func codeFor(status int) int {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusPaymentRequired:
		return CodePaymentRequired
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeUpstream
	default:
		return CodeInternal
	}
}

// Paginated is the paginated response structure
type Paginated struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// SuccessPaginated sends a successful paginated response
func SuccessPaginated(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	send(c, http.StatusOK, CodeOK, "success", Paginated{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}
