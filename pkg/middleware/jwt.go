package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// NewJWTMiddleware authenticates requests with an HS256 token taken from the
// Authorization header or the auth_token cookie. The token's user_id claim
// becomes the caller's userID.
func NewJWTMiddleware(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			cookie, err := c.Cookie("auth_token")
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "No authorization token provided",
					"requestID": requestID,
				})
				return
			}

			tokenStr = cookie
		}

		claims := jwt.MapClaims{}

		_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			msg := "Authorization token invalid"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Authorization token expired. Please log in again"
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     msg,
				"requestID": requestID,
			})

			zap.L().Debug("Rejected token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}
