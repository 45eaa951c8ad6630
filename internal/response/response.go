package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundbridge-live/service-bookings/internal/domain"
)

// Envelope is the standard response body for successful requests.
type Envelope struct {
	Data interface{} `json:"data"`
}

// ErrorBody is the standard response body for failed requests.
type ErrorBody struct {
	Error string `json:"error"`

	// From and To are present for illegal-transition errors so clients can
	// render a precise message.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Success writes a 200 response with the standard envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Data: data})
}

// Created writes a 201 response with the standard envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Data: data})
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: message})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: "authentication required"})
}

// Error maps a domain error to its HTTP status and writes the response.
// Unrecognized errors become opaque 500s.
func Error(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal server error"})
		return
	}

	body := ErrorBody{Error: de.Message}
	switch de.Kind {
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, body)
	case domain.KindUnauthorized:
		c.JSON(http.StatusUnauthorized, body)
	case domain.KindForbidden:
		c.JSON(http.StatusForbidden, body)
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, body)
	case domain.KindConflict:
		c.JSON(http.StatusConflict, body)
	case domain.KindInvalidTransition:
		body.From = de.From
		body.To = de.To
		c.JSON(http.StatusBadRequest, body)
	case domain.KindFinalized:
		c.JSON(http.StatusBadRequest, body)
	default:
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal server error"})
	}
}
