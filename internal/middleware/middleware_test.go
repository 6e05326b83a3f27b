package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(issuer *authz.Issuer, store cache.Store) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(zerolog.Nop()))
	r.GET("/private", AuthMiddleware(issuer, store, zerolog.Nop()), func(c *gin.Context) {
		pr := Principal(c)
		fromCtx, ok := authz.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"user_id":  pr.UserID,
			"same_ctx": ok && fromCtx.UserID == pr.UserID,
		})
	})
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	issuer := authz.NewIssuer("test-secret", time.Hour)
	store := cache.NewMemory()
	r := newEngine(issuer, store)

	clinicID := uuid.New()
	user := &models.User{ID: uuid.New(), Role: models.RoleAdmin, ClinicID: &clinicID}
	token, _, err := issuer.Issue(user, uuid.Nil, uuid.Nil)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		w := get(r, "/private", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "missing_authorization_header")
	})

	t.Run("garbage token", func(t *testing.T) {
		w := get(r, "/private", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("foreign secret", func(t *testing.T) {
		other, _, err := authz.NewIssuer("other", time.Hour).Issue(user, uuid.Nil, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get(r, "/private", other).Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := get(r, "/private", token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.ID.String())
		assert.Contains(t, w.Body.String(), `"same_ctx":true`)
		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	})

	t.Run("revoked token", func(t *testing.T) {
		pr, _, err := issuer.Parse(token)
		require.NoError(t, err)
		require.NoError(t, store.Set(context.Background(), cache.PrefixRevokedToken+pr.TokenID, "1", time.Hour))

		w := get(r, "/private", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "token_revoked")
	})
}

func TestRecovery(t *testing.T) {
	r := newEngine(authz.NewIssuer("x", time.Hour), cache.NewMemory())
	w := get(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestRequestID_PropagatesValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, id, w.Body.String())
	assert.Equal(t, id, w.Header().Get(HeaderRequestID))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(cache.NewMemory(), "login", 2, time.Minute, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
