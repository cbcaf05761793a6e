// internal/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"abiahub/internal/models"
	"abiahub/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuthTestRouter(jwtManager *auth.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/protected", AuthMiddleware(jwtManager), func(c *gin.Context) {
		userID := c.MustGet("user_id").(primitive.ObjectID)
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID.Hex(),
			"role":    c.GetString("role"),
		})
	})
	router.GET("/optional", OptionalAuthMiddleware(jwtManager), func(c *gin.Context) {
		_, authed := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"authenticated": authed})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	router := newAuthTestRouter(jwtManager)

	userID := primitive.NewObjectID()
	token, err := jwtManager.GenerateToken(userID, "ada@example.com", "LGA_OFFICIAL")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.Hex())
	assert.Contains(t, w.Body.String(), "LGA_OFFICIAL")
}

func TestAuthMiddlewareRejections(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	router := newAuthTestRouter(jwtManager)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	router := newAuthTestRouter(jwtManager)

	// Anonymous passes through.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/optional", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")

	// Valid token populates the context.
	token, err := jwtManager.GenerateToken(primitive.NewObjectID(), "ada@example.com", "CITIZEN")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "true")

	// A bad token is ignored rather than rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")
}

func withRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("role", role)
		c.Next()
	}
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		role string
		want int
	}{
		{"LGA_OFFICIAL", http.StatusOK},
		{"STATE_OFFICIAL", http.StatusOK},
		{"ADMIN", http.StatusOK},
		{"CITIZEN", http.StatusForbidden},
		{"ASSEMBLY", http.StatusForbidden},
		{"NO_SUCH_ROLE", http.StatusForbidden},
	}

	for _, tt := range tests {
		router := gin.New()
		router.PUT("/status", withRole(tt.role),
			RequirePermission(models.PermissionUpdateReportStatus),
			func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/status", nil))
		assert.Equal(t, tt.want, w.Code, tt.role)
	}
}

func TestRequirePermissionWithoutRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/stats", RequirePermission(models.PermissionViewStatistics),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireOfficial(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for role, want := range map[string]int{
		"LGA_OFFICIAL": http.StatusOK,
		"ASSEMBLY":     http.StatusOK,
		"ADMIN":        http.StatusOK,
		"CITIZEN":      http.StatusForbidden,
	} {
		router := gin.New()
		router.GET("/official", withRole(role), RequireOfficial(),
			func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/official", nil))
		assert.Equal(t, want, w.Code, role)
	}
}
