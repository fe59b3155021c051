package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

const moderatorIDKey = "moderator_id"

// generateJWT signs a moderator token with the service secret.
func (h *Handler) generateJWT(moderatorID int64) (string, error) {
	claims := jwt.MapClaims{
		"moderator_id": moderatorID,
		"jti":          uuid.NewString(),
		"exp":          time.Now().Add(time.Hour * 72).Unix(),
		"iss":          "modqueue-service",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}

// IssueToken mints a moderator JWT. The bearer of the shared provisioning
// secret decides who gets tokens; rotation is an env change.
func (h *Handler) IssueToken(c *gin.Context) {
	var req struct {
		ModeratorID int64  `json:"moderator_id" binding:"required"`
		Secret      string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Secret != h.JWTSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	token, err := h.generateJWT(req.ModeratorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "moderator_id": req.ModeratorID})
}

// RequireModerator validates the Bearer token and stores the moderator ID
// in the request context.
func (h *Handler) RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}
		id, ok := claims["moderator_id"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		c.Set(moderatorIDKey, int64(id))
		c.Next()
	}
}

// moderatorID returns the authenticated moderator from the gin context.
func moderatorID(c *gin.Context) int64 {
	v, _ := c.Get(moderatorIDKey)
	id, _ := v.(int64)
	return id
}
