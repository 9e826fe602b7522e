package utils

import (
	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Stack   string         `json:"stack,omitempty"`
}

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func Respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func RespondError(c *gin.Context, status int, body ErrorBody) {
	c.JSON(status, Envelope{Success: false, Error: &body})
}

// AbortWithError writes the error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, status int, body ErrorBody) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &body})
}
