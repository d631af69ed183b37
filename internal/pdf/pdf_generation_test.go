package pdf

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/internal/models"
)

func TestRegistrationSummaryRendersPDF(t *testing.T) {
	g := NewSummaryGenerator("")
	reg := &models.Registration{
		ID:            42,
		FirstName:     "Amélie",
		LastName:      "Poulain",
		Email:         "amelie@example.fr",
		Phone:         "+33612345678",
		City:          "Paris",
		Country:       "France",
		Status:        models.RegistrationStatusSubmitted,
		PhoneVerified: true,
		FormData:      json.RawMessage(`{"niveau":"licence","options":["a","b"]}`),
	}

	out, err := g.RegistrationSummary(reg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestFormFieldsSortedAndFlattened(t *testing.T) {
	fields := formFields(json.RawMessage(`{"b":"deux","a":1,"c":null}`))
	require.Len(t, fields, 3)
	assert.Equal(t, [2]string{"a", "1"}, fields[0])
	assert.Equal(t, [2]string{"b", "deux"}, fields[1])
	assert.Equal(t, [2]string{"c", ""}, fields[2])

	assert.Nil(t, formFields(nil))
	assert.Nil(t, formFields(json.RawMessage(`[1,2]`)))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Validé", statusLabel(models.RegistrationStatusValidated))
	assert.Equal(t, "custom", statusLabel("custom"))
}
