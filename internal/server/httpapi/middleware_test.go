package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

type stubValidator struct {
	userID string
	err    error
}

func (s *stubValidator) UserIDFromAccessToken(token string) (string, error) {
	return s.userID, s.err
}

func newAuthRouter(v tokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(v), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c)})
	})
	return r
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	r := newAuthRouter(&stubValidator{userID: "user-1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	r := newAuthRouter(&stubValidator{userID: "user-1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	r := newAuthRouter(&stubValidator{err: common.ErrInvalidToken})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthSetsUserID(t *testing.T) {
	r := newAuthRouter(&stubValidator{userID: "user-42"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"user-42"}`, w.Body.String())
}

func TestWriteErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: logging.Nop()}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", common.ErrValidation, http.StatusBadRequest},
		{"batch too large", common.ErrBatchTooLarge, http.StatusBadRequest},
		{"unauthorized", common.ErrUnauthorized, http.StatusUnauthorized},
		{"invalid token", common.ErrInvalidToken, http.StatusUnauthorized},
		{"expired refresh token", common.ErrRefreshTokenExpired, http.StatusUnauthorized},
		{"not found", common.ErrNotFound, http.StatusNotFound},
		{"anything else", errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.writeError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouterHealthAndAuthGating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: logging.Nop()}
	r := NewRouter(h, logging.Nop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Protected routes reject tokenless requests before touching any service.
	for _, route := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/time"},
		{http.MethodGet, "/api/v1/collections/sales/documents"},
		{http.MethodPost, "/api/v1/batch"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equalf(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}
