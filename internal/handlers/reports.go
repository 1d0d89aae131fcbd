package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dental-clinic-server/internal/reports"
	"dental-clinic-server/internal/uploads"
	"dental-clinic-server/internal/utils"
)

// ReportHandler handles clinical report requests.
type ReportHandler struct {
	Service  *reports.Service
	Uploader *uploads.Uploader
}

// NewReportHandler creates a new ReportHandler. uploader may be nil when no
// bucket is configured.
func NewReportHandler(service *reports.Service, uploader *uploads.Uploader) *ReportHandler {
	return &ReportHandler{Service: service, Uploader: uploader}
}

// CreateReport stores a report and its medicines and documents. Children that
// could not be stored are listed in the response; the report itself is kept.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req reports.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid JSON in request body")
		return
	}

	res, err := h.Service.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err, "Appointment not found")
		return
	}

	msg := "Report created successfully"
	if len(res.Failed) > 0 {
		msg = "Report created, but some medicines or documents could not be saved"
	}
	utils.Created(c, msg, res)
}

// GetReport returns the report written for an appointment tracking code.
func (h *ReportHandler) GetReport(c *gin.Context) {
	agg, err := h.Service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		utils.HandleError(c, err, "No report yet for this appointment")
		return
	}
	utils.Success(c, "Report fetched successfully", agg)
}

// UploadDocument stores a multipart file in S3 and returns the document entry
// to include in a report submission.
func (h *ReportHandler) UploadDocument(c *gin.Context) {
	if !h.Uploader.Enabled() {
		utils.Error(c, http.StatusServiceUnavailable, "Document uploads are not configured")
		return
	}

	code := strings.TrimSpace(c.PostForm("appointment_id"))
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "A file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.BadRequest(c, "Could not read uploaded file")
		return
	}
	defer file.Close()

	doc, err := h.Uploader.Upload(c.Request.Context(), code, fileHeader.Filename, file)
	if errors.Is(err, uploads.ErrDisabled) {
		utils.Error(c, http.StatusServiceUnavailable, "Document uploads are not configured")
		return
	}
	if err != nil {
		utils.HandleError(c, err, "Appointment not found")
		return
	}

	utils.Created(c, "Document uploaded successfully", doc)
}
