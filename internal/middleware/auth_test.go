package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"design-review-server/internal/auth"
)

func newAuthRouter() (*gin.Engine, *Auth) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler(zap.NewNop()))
	return router, &Auth{
		JWTSecret:      "test-secret",
		InternalSecret: "internal-secret",
	}
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func TestInternalAuthMiddleware_SharedSecret(t *testing.T) {
	router, m := newAuthRouter()
	router.GET("/internal/projects/1/status", m.InternalAuthMiddleware(), okHandler)

	req := httptest.NewRequest("GET", "/internal/projects/1/status", nil)
	req.Header.Set("Authorization", "Bearer internal-secret")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInternalAuthMiddleware_WrongSecret(t *testing.T) {
	router, m := newAuthRouter()
	router.GET("/internal/projects/1/status", m.InternalAuthMiddleware(), okHandler)

	for _, header := range []string{"", "Bearer wrong-secret", "Bearer test-secret"} {
		req := httptest.NewRequest("GET", "/internal/projects/1/status", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthMiddleware_HeaderToken(t *testing.T) {
	router, m := newAuthRouter()
	router.GET("/annotations", m.AuthMiddleware(), func(c *gin.Context) {
		identity := IdentityFrom(c)
		assert.NotNil(t, identity)
		c.JSON(http.StatusOK, gin.H{"role": identity.Role})
	})

	token, err := auth.GenerateToken("test-secret", auth.Identity{
		Role: "operator",
		Name: "Admin",
	}, time.Hour)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/annotations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"operator"}`, w.Body.String())
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	router, m := newAuthRouter()
	router.GET("/ws", m.AuthMiddleware(), okHandler)

	token, err := auth.GenerateToken("test-secret", auth.Identity{
		Role:      "reviewer",
		Name:      "Client",
		ProjectID: 1,
	}, time.Hour)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, m := newAuthRouter()
	router.GET("/annotations", m.AuthMiddleware(), okHandler)

	req := httptest.NewRequest("GET", "/annotations", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	router, m := newAuthRouter()
	router.POST("/projects/1/submit", m.AuthMiddleware(), m.RequireRole("operator"), okHandler)

	reviewerToken, _ := auth.GenerateToken("test-secret", auth.Identity{Role: "reviewer", Name: "Client"}, time.Hour)
	operatorToken, _ := auth.GenerateToken("test-secret", auth.Identity{Role: "operator", Name: "Admin"}, time.Hour)

	req := httptest.NewRequest("POST", "/projects/1/submit", nil)
	req.Header.Set("Authorization", "Bearer "+reviewerToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("POST", "/projects/1/submit", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
