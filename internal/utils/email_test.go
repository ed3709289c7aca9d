package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDomainFromEmail(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomainFromEmail("user@example.com"))
	assert.Equal(t, "example.com", ExtractDomainFromEmail("Name <user@EXAMPLE.com>"))
	assert.Equal(t, "", ExtractDomainFromEmail("not-an-email"))
	assert.Equal(t, "", ExtractDomainFromEmail(""))
}

func TestTruncatePreview(t *testing.T) {
	assert.Equal(t, "short text", TruncatePreview("short   text", 50))
	assert.Equal(t, "one two", TruncatePreview("one\n\ttwo", 50))

	long := TruncatePreview("abcdefghij", 5)
	assert.Equal(t, "abcde…", long)

	assert.Equal(t, "", TruncatePreview("   ", 10))
}
