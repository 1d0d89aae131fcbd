package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/reports"
	"dental-clinic-server/internal/store/storetest"
	"dental-clinic-server/internal/uploads"
)

type fakeS3 struct {
	keys []string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func reportRouter(t *testing.T, uploader *uploads.Uploader) (*gin.Engine, *gin.Engine) {
	t.Helper()
	mem := storetest.NewMemory()
	apptSvc := newAppointmentService(mem, appointments.Options{})
	reportSvc := reports.NewService(mem, reports.Options{Appointments: apptSvc})

	h := NewReportHandler(reportSvc, uploader)
	r := gin.New()
	r.POST("/admin/reports", h.CreateReport)
	r.POST("/admin/reports/documents", h.UploadDocument)
	r.GET("/reports/:code", h.GetReport)

	return r, appointmentRouter(apptSvc)
}

func TestCreateAndGetReport(t *testing.T) {
	r, appts := reportRouter(t, nil)
	booked := bookVia(t, appts)
	code := booked.Confirmation.TrackingCode

	w, env := do(t, r, http.MethodGet, "/reports/"+code, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No report yet for this appointment", env.Error)

	w, env = do(t, r, http.MethodPost, "/admin/reports", reports.CreateInput{
		AppointmentRef: code,
		Diagnosis:      "Deep caries on 36",
		Treatment:      "Root canal, first sitting",
		NextVisitDate:  "2026-10-27",
		Medicines: []reports.MedicineInput{
			{Name: "Amoxicillin 500", Dosage: "1-0-1 for 5 days"},
			{Name: "", Dosage: "dropped"},
		},
		Documents: []reports.DocumentInput{
			{Name: "opg.png", URL: "https://cdn.example.com/opg.png"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	assert.Equal(t, "Report created successfully", env.Message)
	var res reports.CreateResult
	env.decode(t, &res)
	assert.NotEmpty(t, res.ReportID)
	assert.Equal(t, 1, res.Medicines)
	assert.Equal(t, 1, res.Documents)
	assert.Empty(t, res.Failed)

	w, env = do(t, r, http.MethodGet, "/reports/"+code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var agg reports.Aggregate
	env.decode(t, &agg)
	assert.Equal(t, "Deep caries on 36", agg.Report.Diagnosis)
	require.Len(t, agg.Medicines, 1)
	assert.Equal(t, "Amoxicillin 500", agg.Medicines[0].Name)
	require.Len(t, agg.Documents, 1)
	assert.Equal(t, models.DocumentImage, agg.Documents[0].Type)
}

func TestCreateReportMissingFields(t *testing.T) {
	r, _ := reportRouter(t, nil)

	w, env := do(t, r, http.MethodPost, "/admin/reports", reports.CreateInput{AppointmentRef: "MIR-173210-AB12", Treatment: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing required fields: diagnosis", env.Error)

	w, _ = do(t, r, http.MethodPost, "/admin/reports", "[]")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/reports/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serveEnvelope(t *testing.T, r http.Handler, req *http.Request) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestUploadDocument(t *testing.T) {
	client := &fakeS3{}
	uploader := uploads.NewUploader(client, uploads.Config{Bucket: "clinic-reports", PublicBaseURL: "https://files.example.com"}, zerolog.Nop())
	r, _ := reportRouter(t, uploader)

	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	status, env := serveEnvelope(t, r, multipartUpload(t, map[string]string{"appointment_id": "MIR-173210-AB12"}, "invoice.pdf", pdf))
	require.Equal(t, http.StatusCreated, status, env.Error)

	var doc reports.DocumentInput
	env.decode(t, &doc)
	assert.Equal(t, "invoice.pdf", doc.Name)
	assert.Equal(t, string(models.DocumentPDF), doc.Type)
	require.Len(t, client.keys, 1)
	assert.Equal(t, "https://files.example.com/"+client.keys[0], doc.URL)

	status, env = serveEnvelope(t, r, multipartUpload(t, map[string]string{}, "invoice.pdf", pdf))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "appointment id is required", env.Error)

	status, env = serveEnvelope(t, r, multipartUpload(t, map[string]string{"appointment_id": "MIR-173210-AB12"}, "", nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "A file is required", env.Error)

	client.err = errors.New("access denied")
	status, _ = serveEnvelope(t, r, multipartUpload(t, map[string]string{"appointment_id": "MIR-173210-AB12"}, "invoice.pdf", pdf))
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestUploadDocumentDisabled(t *testing.T) {
	r, _ := reportRouter(t, nil)

	status, env := serveEnvelope(t, r, multipartUpload(t, map[string]string{"appointment_id": "X"}, "a.png", []byte("x")))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "Document uploads are not configured", env.Error)
}
