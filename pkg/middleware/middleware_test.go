package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return s
}

func newJWTRouter() *gin.Engine {
	r := gin.New()
	r.Use(NewRequestIDMiddleware(), NewJWTMiddleware(secret))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})

	return r
}

func TestJWTMiddleware(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{
			name:   "bearer header",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) },
			status: http.StatusOK,
			body:   "u1",
		},
		{
			name:   "cookie",
			setup:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_token", Value: valid}) },
			status: http.StatusOK,
			body:   "u1",
		},
		{
			name:   "missing token",
			setup:  func(r *http.Request) {},
			status: http.StatusUnauthorized,
		},
		{
			name: "expired",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
					"user_id": "u1",
					"exp":     time.Now().Add(-time.Minute).Unix(),
				}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "no expiry",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"user_id": "u1"}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "wrong secret",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
					"user_id": "u1",
					"exp":     time.Now().Add(time.Hour).Unix(),
				}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "wrong algorithm",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS512, secret, jwt.MapClaims{
					"user_id": "u1",
					"exp":     time.Now().Add(time.Hour).Unix(),
				}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "missing user id",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
					"exp": time.Now().Add(time.Hour).Unix(),
				}))
			},
			status: http.StatusUnauthorized,
		},
	}

	r := newJWTRouter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2})
	defer rl.Stop()

	r := gin.New()
	r.Use(NewRequestIDMiddleware(), rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other clients have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodySizeLimiter(t *testing.T) {
	r := gin.New()
	r.Use(NewRequestIDMiddleware(), BodySizeLimiter(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.ContentLength = 64

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
