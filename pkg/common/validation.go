// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package common

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxKeyLength is the maximum allowed length for object keys
	MaxKeyLength = 1024
)

// bucketNamePattern follows the S3 naming rules: 3-63 characters, lowercase
// alphanumerics, dots and hyphens, starting and ending with an alphanumeric.
var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap lets validation failures match ErrMalformedNotification.
func (e *ValidationError) Unwrap() error {
	return ErrMalformedNotification
}

// ValidateKey validates an object key for security issues.
// Returns error if the key:
// - Is empty
// - Exceeds maximum length
// - Contains null bytes or control characters
// - Contains path traversal sequences (..)
// - Is an absolute path
func ValidateKey(key string) error {
	if key == "" {
		return &ValidationError{Field: "key", Message: "key cannot be empty"}
	}

	if len(key) > MaxKeyLength {
		return &ValidationError{
			Field:   "key",
			Message: fmt.Sprintf("key length exceeds maximum of %d bytes", MaxKeyLength),
		}
	}

	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '\x00':
			return &ValidationError{Field: "key", Message: "key cannot contain null bytes"}
		case '\n', '\r', '\t':
			return &ValidationError{
				Field:   "key",
				Message: fmt.Sprintf("key contains invalid character sequence: %q", string(key[i])),
			}
		}
	}

	if !utf8.ValidString(key) {
		return &ValidationError{Field: "key", Message: "key must be valid UTF-8"}
	}

	for _, segment := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return &ValidationError{Field: "key", Message: "key cannot contain path traversal sequences (..)"}
		}
	}

	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") || (len(key) >= 2 && key[1] == ':') {
		return &ValidationError{Field: "key", Message: "key cannot be an absolute path"}
	}

	return nil
}

// ValidateBucket checks a bucket name against the S3 naming rules.
func ValidateBucket(bucket string) error {
	if bucket == "" {
		return &ValidationError{Field: "bucket", Message: "bucket cannot be empty"}
	}
	if !bucketNamePattern.MatchString(bucket) || strings.Contains(bucket, "..") {
		return &ValidationError{Field: "bucket", Message: fmt.Sprintf("invalid bucket name %q", bucket)}
	}
	return nil
}
