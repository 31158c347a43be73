// SPDX-License-Identifier: MIT

// Package validate provides configuration validation utilities for the tunebox application.
package validate

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Error represents a validation error
type Error struct {
	Field   string      // Field name that failed validation
	Value   interface{} // The invalid value
	Message string      // Human-readable error message
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors and can produce a ValidationError when invalid.
type Validator struct {
	errors []Error
}

// ValidationError bundles multiple validation errors into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{
		errors: make([]Error, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string, value interface{}) {
	v.errors = append(v.errors, Error{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all accumulated validation errors
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err converts the accumulated validation errors into an error value.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}

	copied := make([]Error, len(v.errors))
	copy(copied, v.errors)

	return ValidationError{errors: copied}
}

// Errors returns the individual validation errors making up the validation failure.
func (e ValidationError) Errors() []Error {
	return e.errors
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	if len(e.errors) == 0 {
		return ""
	}

	if len(e.errors) == 1 {
		return e.errors[0].Error()
	}

	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ListenAddr validates a host:port listen address. The host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	if strings.TrimSpace(addr) == "" {
		v.AddError(field, "listen address cannot be empty", addr)
		return
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid port %q", port), addr)
		return
	}
	// port 0 lets the kernel pick, which tests rely on
	if n < 0 || n > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 0 and 65535, got %d", n), addr)
	}
}

// NotEmpty validates that a string is not empty or whitespace-only
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field,
		fmt.Sprintf("value must be one of %v, got %q", allowed, value),
		value)
}

// LogLevels are the level names accepted for logging configuration.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// LogLevel validates a log level name, ignoring case.
func (v *Validator) LogLevel(field, level string) {
	v.OneOf(field, strings.ToLower(level), LogLevels)
}

// NonNegative validates that a number is non-negative (>= 0)
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

// AbsoluteDir validates that path is a clean absolute directory path.
// Existence is not checked: a music share may be mounted after startup.
func (v *Validator) AbsoluteDir(field, path string) {
	if strings.TrimSpace(path) == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	if !filepath.IsAbs(path) {
		v.AddError(field, fmt.Sprintf("must be an absolute path, got %s", path), path)
		return
	}
	if filepath.Clean(path) != path {
		v.AddError(field, fmt.Sprintf("must be a clean path, got %s", path), path)
	}
}

// Hostname validates a DNS hostname such as a tunnel domain.
func (v *Validator) Hostname(field, host string) {
	if host == "" {
		v.AddError(field, "hostname cannot be empty", host)
		return
	}
	if len(host) > 253 {
		v.AddError(field, "hostname exceeds 253 characters", host)
		return
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			v.AddError(field, fmt.Sprintf("invalid hostname label in %q", host), host)
			return
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			v.AddError(field, fmt.Sprintf("hostname label cannot start or end with '-': %q", host), host)
			return
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
				v.AddError(field, fmt.Sprintf("invalid character %q in hostname %q", r, host), host)
				return
			}
		}
	}
}

// Glob validates the syntax of a file glob pattern (supports ** and {a,b}).
func (v *Validator) Glob(field, pattern string) {
	if strings.TrimSpace(pattern) == "" {
		v.AddError(field, "glob pattern cannot be empty", pattern)
		return
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		v.AddError(field, fmt.Sprintf("invalid glob pattern: %s", pattern), pattern)
	}
}

// Unique reports duplicate entries in values.
func (v *Validator) Unique(field string, values []string) {
	seen := make(map[string]struct{}, len(values))
	for _, val := range values {
		if _, dup := seen[val]; dup {
			v.AddError(field, fmt.Sprintf("duplicate entry %q", val), val)
			continue
		}
		seen[val] = struct{}{}
	}
}
