package models

// DocumentType classifies a report attachment.
type DocumentType string

const (
	DocumentImage    DocumentType = "image"
	DocumentPDF      DocumentType = "pdf"
	DocumentDocument DocumentType = "document"
)

// Report is the clinical report written after a visit. It points at its
// appointment by tracking code only.
type Report struct {
	BaseModel
	AppointmentRef string `gorm:"column:appointment_id;size:32;index;not null" json:"appointmentId"`
	Diagnosis      string `gorm:"type:text;not null" json:"diagnosis"`
	Observations   string `gorm:"type:text" json:"observations,omitempty"`
	Treatment      string `gorm:"type:text;not null" json:"treatment"`
	NextVisitDate  string `gorm:"column:next_visit;size:64" json:"nextVisit,omitempty"`
}

// Medicine is a prescribed line item owned by a report.
type Medicine struct {
	BaseModel
	ReportRef string `gorm:"column:report_id;size:36;index;not null" json:"reportId"`
	Name      string `gorm:"size:255;not null" json:"name"`
	Dosage    string `gorm:"size:255;not null" json:"dosage"`
}

// Document is a file (x-ray, prescription scan, pdf) attached to a report.
type Document struct {
	BaseModel
	ReportRef string       `gorm:"column:report_id;size:36;index;not null" json:"reportId"`
	Name      string       `gorm:"size:255;not null" json:"name"`
	URL       string       `gorm:"column:url;type:text;not null" json:"url"`
	Type      DocumentType `gorm:"size:20;default:'image'" json:"type"`
}

// ParseDocumentType maps free text onto a known type, defaulting to image.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case DocumentPDF:
		return DocumentPDF
	case DocumentDocument:
		return DocumentDocument
	default:
		return DocumentImage
	}
}
