package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/config"
	"dental-clinic-server/internal/contacts"
	"dental-clinic-server/internal/metrics"
	"dental-clinic-server/internal/middleware"
	"dental-clinic-server/internal/reports"
	"dental-clinic-server/internal/store/storetest"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	mem := storetest.NewMemory()
	appts := appointments.NewService(mem, appointments.Options{})

	cfg := &config.Config{Origin: "http://localhost:3000", JWTSecret: "access-secret", JWTRefreshSecret: "refresh-secret"}
	return NewRouter(cfg, Services{
		Appointments: appts,
		Reports:      reports.NewService(mem, reports.Options{Appointments: appts}),
		Contacts:     contacts.NewService(mem, nil, zerolog.Nop()),
		Metrics:      metrics.New(prometheus.NewRegistry()),
		Logger:       zerolog.Nop(),
	})
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := serve(testRouter(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := testRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/admin/appointments"},
		{http.MethodPatch, "/api/v1/admin/appointments/abc/status"},
		{http.MethodPost, "/api/v1/admin/reports"},
		{http.MethodGet, "/api/v1/admin/messages"},
		{http.MethodGet, "/api/v1/admin/users"},
		{http.MethodGet, "/api/v1/auth/verify"},
	} {
		w := serve(r, tc.method, tc.path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestPublicRoutes(t *testing.T) {
	r := testRouter()

	w := serve(r, http.MethodGet, "/api/v1/appointments/MIR-000000-ZZZZ")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/reports/MIR-000000-ZZZZ")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/api/v1/appointments/:ref"`)
}
