package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"oficinapro/internal/handler"
	"oficinapro/internal/infra"
	"oficinapro/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_DegradedWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewSQLiteDB(t)
	r := gin.New()
	r.GET("/health", handler.Health(db, nil, infra.NewCircuitBreaker(infra.DefaultCBConfig())))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "error", body["redis"])
	assert.Equal(t, "closed", body["store_breaker"])
}
