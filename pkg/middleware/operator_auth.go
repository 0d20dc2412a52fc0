package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/cargoflow/tracking-service/pkg/logging"
)

// Operator context keys
const (
	ContextKeyOperatorID   = "operatorId"
	ContextKeyOperatorRole = "operatorRole"
)

// Operator HTTP header names. Identity is verified upstream (gateway);
// this service records the already-authenticated actor on mutations.
const (
	HeaderOperatorID   = "X-Operator-ID"
	HeaderOperatorRole = "X-Operator-Role"
)

// OperatorAuthConfig holds configuration for operator extraction middleware
type OperatorAuthConfig struct {
	// Required when true, requests without an operator identity are rejected
	Required bool

	// DefaultOperatorID is used when no header is provided and Required is false
	DefaultOperatorID string
}

// DefaultOperatorAuthConfig returns a default configuration
func DefaultOperatorAuthConfig() *OperatorAuthConfig {
	return &OperatorAuthConfig{
		Required:          false,
		DefaultOperatorID: "system",
	}
}

// OperatorAuth middleware extracts the operator identity from headers and adds
// it to the request context for auditing and event attribution.
func OperatorAuth(config *OperatorAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultOperatorAuthConfig()
	}

	return func(c *gin.Context) {
		operatorID := c.GetHeader(HeaderOperatorID)
		operatorRole := c.GetHeader(HeaderOperatorRole)

		if operatorID == "" && !config.Required {
			operatorID = config.DefaultOperatorID
		}

		if config.Required && operatorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_OPERATOR_IDENTITY",
				"message": "Operator identity is required",
			})
			return
		}

		ctx := logging.ContextWithUserID(c.Request.Context(), operatorID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(ContextKeyOperatorID, operatorID)
		if operatorRole != "" {
			c.Set(ContextKeyOperatorRole, operatorRole)
		}

		c.Next()
	}
}

// GetOperatorID retrieves the operator identity from Gin context
func GetOperatorID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyOperatorID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetOperatorRole retrieves the operator role from Gin context
func GetOperatorRole(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyOperatorRole); exists {
		if role, ok := val.(string); ok {
			return role
		}
	}
	return ""
}

// RequireOperator ensures an operator identity is present. Use this on
// mutating endpoints where the actor must be recorded.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderOperatorID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_OPERATOR_IDENTITY",
				"message": "Operator identity is required for this endpoint",
			})
			return
		}
		c.Next()
	}
}
