package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInstitutionalEmail(t *testing.T) {
	domains := []string{"iitk.ac.in"}

	cases := map[string]bool{
		"s@iitk.ac.in":          true,
		"  S@IITK.AC.IN ":       true,
		"first.last@iitk.ac.in": true,
		"@iitk.ac.in":           false,
		"s@gmail.com":           false,
		"s@sub.iitk.ac.in":      false,
		"a b@iitk.ac.in":        false,
		"a@b@iitk.ac.in":        false,
		"":                      false,
	}
	for email, want := range cases {
		assert.Equal(t, want, IsInstitutionalEmail(email, domains), email)
	}
}

func TestIsInstitutionalEmail_MultipleDomains(t *testing.T) {
	domains := []string{"iitk.ac.in", "cse.iitk.ac.in"}
	assert.True(t, IsInstitutionalEmail("x@cse.iitk.ac.in", domains))
	assert.False(t, IsInstitutionalEmail("x@iitb.ac.in", domains))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "u@x.ac.in", NormalizeEmail("  U@X.ac.IN\t"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("admin@x.ac.in"))
	assert.False(t, IsValidEmail("admin"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("a b@x.ac.in"))
	assert.False(t, IsValidEmail("a@b@x.ac.in"))
}
