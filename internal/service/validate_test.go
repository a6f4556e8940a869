package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistrationAcceptsWellFormedInput(t *testing.T) {
	err := validateRegistration(&RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "correcthorse",
	})
	assert.NoError(t, err)
}

func TestValidateRegistrationCollectsAllFieldErrors(t *testing.T) {
	err := validateRegistration(&RegisterInput{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "First name is required", verr.Fields["firstName"])
	assert.Equal(t, "Last name is required", verr.Fields["lastName"])
	assert.Equal(t, "Email is required", verr.Fields["email"])
	assert.Equal(t, "Password is required", verr.Fields["password"])
}

func TestIsAlpha(t *testing.T) {
	assert.True(t, isAlpha("Ada"))
	assert.True(t, isAlpha("Ólafur"))
	assert.False(t, isAlpha(""))
	assert.False(t, isAlpha("Ada1"))
	assert.False(t, isAlpha("Ada Lovelace"))
	assert.False(t, isAlpha("O'Brien"))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, isEmail("ada@example.com"))
	assert.False(t, isEmail("ada@"))
	assert.False(t, isEmail("not-an-email"))
	assert.False(t, isEmail("Ada Lovelace <ada@example.com>"))
}

func TestIsMobile(t *testing.T) {
	assert.True(t, isMobile("+442071234567"))
	assert.True(t, isMobile("5550001"))
	assert.False(t, isMobile("12345"))
	assert.False(t, isMobile("+44 20 7123"))
	assert.False(t, isMobile("phone"))
}

func TestIsDate(t *testing.T) {
	assert.True(t, isDate("1815-12-10"))
	assert.False(t, isDate("10/12/1815"))
	assert.False(t, isDate("1815-13-01"))
	assert.False(t, isDate(""))
}

func TestValidateProfileUpdateIgnoresNilFields(t *testing.T) {
	assert.NoError(t, validateProfileUpdate(&ProfileUpdateInput{}))
}
