package validation

import (
	"strings"
	"testing"

	"socio/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice"))
	assert.NoError(t, ValidateUsername("bob_99"))

	cases := []string{
		"",
		"ab",
		"Alice",
		"al ice",
		"al:ice",
		"alice!",
		strings.Repeat("a", 21),
		"admin",
		"socio",
	}
	for _, username := range cases {
		err := ValidateUsername(username)
		assert.Error(t, err, "username %q", username)
		assert.True(t, models.IsValidation(err), "username %q", username)
	}
}

func TestValidateDisplayName(t *testing.T) {
	assert.NoError(t, ValidateDisplayName("Alice Liddell"))
	assert.Error(t, ValidateDisplayName(""))
	assert.Error(t, ValidateDisplayName("   "))
	assert.Error(t, ValidateDisplayName(strings.Repeat("x", 51)))
}

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload([]byte{1, 2, 3}))
	assert.Error(t, ValidateUpload(nil))
	assert.True(t, models.IsValidation(ValidateUpload(nil)))
}
