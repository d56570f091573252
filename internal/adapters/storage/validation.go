package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes defines the MIME types archived records may use.
var AllowedContentTypes = map[string]bool{
	"application/json": true,
	"text/plain":       true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	// Normalize content type (remove parameters like charset)
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateKey rejects keys that would escape their prefix or are empty.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object key must not be empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("object key %q is not allowed", key)
	}
	return nil
}
