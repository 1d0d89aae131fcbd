package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminPasswordHashed(t *testing.T) {
	a := &Admin{Username: "reception"}
	require.NoError(t, a.SetPassword("s3cret-pass"))

	assert.True(t, a.HasHashedPassword())
	assert.True(t, a.CheckPassword("s3cret-pass"))
	assert.False(t, a.CheckPassword("wrong"))
}

func TestAdminPasswordLegacyPlaintext(t *testing.T) {
	a := &Admin{Username: "old", Password: "letmein"}

	assert.False(t, a.HasHashedPassword())
	assert.True(t, a.CheckPassword("letmein"))
	assert.False(t, a.CheckPassword("letmein "))
	assert.False(t, (&Admin{}).CheckPassword(""))
}

func TestParseDocumentType(t *testing.T) {
	assert.Equal(t, DocumentPDF, ParseDocumentType("pdf"))
	assert.Equal(t, DocumentDocument, ParseDocumentType("document"))
	assert.Equal(t, DocumentImage, ParseDocumentType(""))
	assert.Equal(t, DocumentImage, ParseDocumentType("video"))
}

func TestCollectionsCoverStorageFieldNames(t *testing.T) {
	cols := Collections()

	appt := cols["appointments"]
	assert.Contains(t, appt.Fields, "appointment_id")
	assert.Contains(t, appt.Fields, "at")
	assert.NotContains(t, appt.Indexed, "notes")

	assert.Equal(t, []string{"report_id"}, cols["medicines"].Indexed)
	assert.IsType(t, &ContactMessage{}, cols["contact_messages"].New())
}
