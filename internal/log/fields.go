// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldTaskID    = "task_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldTool      = "tool"
	FieldExitCode  = "exit_code"

	// Network fields
	FieldSubnet = "subnet"
	FieldIP     = "ip"
	FieldPort   = "port"
	FieldVendor = "vendor"

	// Media / stream fields
	FieldURL        = "url"
	FieldCodec      = "codec"
	FieldResolution = "resolution"
	FieldFPS        = "fps"
	FieldAttempt    = "attempt"
	FieldStatus     = "status"
)
