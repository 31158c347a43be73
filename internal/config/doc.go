// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates, persists and hot-reloads the tunebox
// configuration.
//
// Values are resolved with the precedence ENV > file > defaults. The file is
// JSON (config.json, the historical format) or YAML, selected by extension,
// and is decoded strictly: unknown fields and trailing documents are errors.
package config
