// Package uploads stores report attachments in S3.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dental-clinic-server/internal/apperrors"
	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/reports"
)

// DefaultMaxBytes caps a single upload at 10 MiB.
const DefaultMaxBytes = 10 << 20

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("uploads: storage not configured")

// S3API is the subset of the S3 client used by Uploader.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config locates the bucket. PublicBaseURL overrides the default
// virtual-hosted S3 URL, e.g. for a CDN in front of the bucket.
type Config struct {
	Bucket        string
	Region        string
	PublicBaseURL string
	MaxBytes      int64
}

// Uploader puts report documents into S3 and classifies them.
type Uploader struct {
	client   S3API
	bucket   string
	baseURL  string
	maxBytes int64
	newID    func() string
	log      zerolog.Logger
}

func NewUploader(client S3API, cfg Config, logger zerolog.Logger) *Uploader {
	u := &Uploader{
		client:   client,
		bucket:   strings.TrimSpace(cfg.Bucket),
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes: cfg.MaxBytes,
		newID:    uuid.NewString,
		log:      logger.With().Str("component", "uploads").Logger(),
	}
	if u.maxBytes <= 0 {
		u.maxBytes = DefaultMaxBytes
	}
	if u.baseURL == "" && u.bucket != "" {
		if cfg.Region == "" {
			u.baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", u.bucket)
		} else {
			u.baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", u.bucket, cfg.Region)
		}
	}
	return u
}

// Enabled reports whether uploads can be stored.
func (u *Uploader) Enabled() bool {
	return u != nil && u.client != nil && u.bucket != ""
}

// Upload stores one file under reports/<code>/ and returns it as a document
// entry ready to attach to a report. code must be a tracking code.
func (u *Uploader) Upload(ctx context.Context, code, filename string, r io.Reader) (reports.DocumentInput, error) {
	if !u.Enabled() {
		return reports.DocumentInput{}, ErrDisabled
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return reports.DocumentInput{}, apperrors.NewValidationError("appointment id is required")
	}
	if !appointments.TrackingCodePattern.MatchString(code) {
		return reports.DocumentInput{}, apperrors.NewValidationError("appointment id must be a tracking code such as MIR-174321-7KQ2")
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return reports.DocumentInput{}, fmt.Errorf("uploads: read: %w", err)
	}
	if len(data) == 0 {
		return reports.DocumentInput{}, apperrors.NewValidationError("file is empty")
	}
	if int64(len(data)) > u.maxBytes {
		return reports.DocumentInput{}, apperrors.NewValidationError(fmt.Sprintf("file exceeds %d bytes", u.maxBytes))
	}

	mtype := mimetype.Detect(data)
	name := cleanName(filename)
	key := path.Join("reports", code, u.newID()+"-"+name)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mtype.String()),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return reports.DocumentInput{}, fmt.Errorf("uploads: s3 put %s: %w: %w", key, apperrors.ErrUpstream, err)
	}

	doc := reports.DocumentInput{
		Name: name,
		URL:  u.baseURL + "/" + key,
		Type: string(Classify(mtype)),
	}
	u.log.Info().Str("key", key).Str("content_type", mtype.String()).Int("bytes", len(data)).Msg("report document uploaded")
	return doc, nil
}

// Classify maps a detected content type onto a report document type.
func Classify(m *mimetype.MIME) models.DocumentType {
	for ; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return models.DocumentImage
		case m.Is("application/pdf"):
			return models.DocumentPDF
		}
	}
	return models.DocumentDocument
}

func cleanName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "document"
	}
	return out
}
