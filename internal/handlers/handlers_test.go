package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/store"
)

var (
	ist      = time.FixedZone("IST", 5*60*60+30*60)
	fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, ist)
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors utils.ResponseData with raw data so tests can decode it
// into whatever type the endpoint returns.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Errors  []string        `json:"errors"`
	Meta    json.RawMessage `json:"meta"`
}

func (e envelope) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, v))
}

func (e envelope) decodeMeta(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Meta, v))
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func newAppointmentService(backend store.Backend, opts appointments.Options) *appointments.Service {
	opts.Now = func() time.Time { return fixedNow }
	opts.Random = rand.New(rand.NewSource(1))
	opts.Location = ist
	return appointments.NewService(backend, opts)
}

func bookingBody() map[string]string {
	return map[string]string{
		"patient_name":     "Asha Patil",
		"phone":            "98765 43210",
		"email":            "asha@example.com",
		"service":          "Root Canal",
		"appointment_date": "2026-10-20",
		"appointment_time": "10:30 am",
		"clinic":           "Miraj",
	}
}
