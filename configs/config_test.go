package config

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUniqueInstance(t *testing.T) {
	id := CreateUniqueInstance("kpi")
	_, err := uuid.FromString(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, CreateUniqueInstance("kpi"))
}

func TestCORSAllowsPatchPreflight(t *testing.T) {
	r := chi.NewRouter()
	r.Use(CORS([]string{"http://dash"}).Handler)
	r.Patch("/v1/kpi-cards/{id}", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodOptions, "/v1/kpi-cards/c1", nil)
	req.Header.Set("Origin", "http://dash")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://dash", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(CustomLoggerMiddleware())
	r.Get("/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
