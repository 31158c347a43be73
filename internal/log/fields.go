// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService       = "service"
	FieldVersion       = "version"
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldRootID        = "root_id"
	FieldDomain        = "domain"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"

	// Path / URL fields
	FieldPath       = "path"
	FieldConfigPath = "config_path"

	// HTTP fields
	FieldMethod     = "method"
	FieldStatus     = "status"
	FieldBytes      = "bytes"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
)
