package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// TokenParser verifies a bearer token and returns its claims
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware authenticates requests with Casdoor and provisions
// the local account on first sight
type CasdoorAuthMiddleware struct {
	parser   TokenParser
	accounts services.AccountService
	logger   utils.Logger
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, accounts services.AccountService, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)
	return NewAuthMiddlewareWithParser(client, accounts, logger)
}

func NewAuthMiddlewareWithParser(parser TokenParser, accounts services.AccountService, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser:   parser,
		accounts: accounts,
		logger:   logger,
	}
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Unauthorized",
				Details: "authorization header missing or malformed",
			})
			return
		}

		claims, err := cam.parser.ParseJwtToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Unauthorized",
				Details: fmt.Sprintf("invalid token: %v", err),
			})
			return
		}

		identity, err := identityFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Unauthorized",
				Details: err.Error(),
			})
			return
		}

		user, err := cam.accounts.Provision(c.Request.Context(), identity)
		if err != nil {
			utils.GetLogger(c, cam.logger).Error("Failed to provision account", "user_id", identity.ID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to load account"})
			return
		}
		principal, err := user.Principal()
		if err != nil {
			utils.GetLogger(c, cam.logger).Error("Account has no usable profile", "user_id", user.ID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to load account"})
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxUserRole, user.Role)
		c.Set(ctxPrincipal, principal)
		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role. Admins always pass.
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ctxUserRole)
		userRole, valid := role.(models.UserRole)
		if !ok || !valid {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "User role not found in context"})
			return
		}

		if userRole == models.RoleAdmin {
			c.Next()
			return
		}
		for _, required := range requiredRoles {
			if userRole == required {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient permissions",
			Details: fmt.Sprintf("required role: %v", requiredRoles),
		})
	}
}

// GetPrincipal extracts the authenticated caller from the Gin context
func GetPrincipal(c *gin.Context) (models.Principal, error) {
	v, exists := c.Get(ctxPrincipal)
	if !exists {
		return nil, fmt.Errorf("principal not found in context")
	}
	p, ok := v.(models.Principal)
	if !ok {
		return nil, fmt.Errorf("invalid principal type in context")
	}
	return p, nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func identityFromClaims(claims *casdoorsdk.Claims) (*services.Identity, error) {
	if claims == nil || claims.Id == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	role := mapCasdoorRole(claims.User.Type)
	if claims.User.IsAdmin {
		role = models.RoleAdmin
	}

	return &services.Identity{
		ID:       claims.Id,
		Username: claims.User.Name,
		FullName: claims.User.DisplayName,
		Email:    claims.User.Email,
		Role:     role,
	}, nil
}

// mapCasdoorRole maps the Casdoor user type to an internal role
func mapCasdoorRole(casdoorType string) models.UserRole {
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "trainer", "teacher", "instructor":
		return models.RoleTrainer
	default:
		return models.RoleStudent
	}
}
