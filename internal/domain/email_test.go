package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@example.com",
		"user+tag@example.co.uk",
		"user_name%x@sub.example.io",
		"a@b.de",
	}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), "expected valid: %s", email)
	}

	invalid := []string{
		"",
		"plainstring",
		"missing-domain@",
		"@missing-local.com",
		"no-tld@example",
		"short-tld@example.c",
		"spaces in@example.com",
		"user@example.1a", // final label must be alphabetic
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), "expected invalid: %s", email)
	}
}

func TestValidateEmailLength(t *testing.T) {
	local := strings.Repeat("a", 250)
	assert.False(t, ValidateEmail(local+"@example.com"))
}
