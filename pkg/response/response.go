package response

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"skaila.com/gamification/pkg/apperror"
)

// GetCaller retrieves the authenticated service name from the context
func GetCaller(c *gin.Context) (string, error) {
	caller, exists := c.Get("caller")
	if !exists {
		return "", apperror.ErrUnauthorized
	}
	name, ok := caller.(string)
	if !ok || name == "" {
		return "", apperror.ErrUnauthorized
	}
	return name, nil
}

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a valid uuid", apperror.ErrInvalidInput, name)
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError || code == http.StatusServiceUnavailable {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
