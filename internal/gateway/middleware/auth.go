package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/utils"
)

const claimsKey = "claims"

type TokenParser interface {
	ParseToken(token string) (*utils.Claims, error)
}

// BearerToken returns the token from the Authorization header, falling
// back to the token query parameter used by websocket clients.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"error":   gin.H{"kind": domain.KindAuthentication},
	})
}

// JWTAuth rejects requests without a valid staff token and stores the
// claims on the context.
func JWTAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			unauthorized(c, "missing or invalid token")
			return
		}
		claims, err := tokens.ParseToken(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims returns the claims JWTAuth stored, or nil.
func Claims(c *gin.Context) *utils.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}

// HasRole reports whether the caller's token carries one of roles.
func HasRole(c *gin.Context, roles ...domain.Role) bool {
	claims := Claims(c)
	if claims == nil {
		return false
	}
	for _, r := range roles {
		if strings.EqualFold(claims.Role, string(r)) {
			return true
		}
	}
	return false
}

// Forbidden aborts with 403 in the API envelope.
func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"message": message,
		"error":   gin.H{"kind": domain.KindAuthentication, "code": "FORBIDDEN"},
	})
}

// RequireRole lets through only tokens carrying one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Claims(c) == nil {
			unauthorized(c, "missing token")
			return
		}
		if !HasRole(c, roles...) {
			Forbidden(c, "insufficient role")
			return
		}
		c.Next()
	}
}

// TenantScope rejects a restaurantId query parameter that names another
// restaurant than the caller's token.
func TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			unauthorized(c, "missing token")
			return
		}
		if id := c.Query("restaurantId"); id != "" && id != claims.RestaurantID {
			Forbidden(c, "token is not valid for restaurant "+id)
			return
		}
		c.Next()
	}
}
