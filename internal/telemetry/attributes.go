// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by tunebox spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	LibraryRootIDKey   = "library.root_id"
	LibraryRootPathKey = "library.root_path"
	ScanStatusKey      = "scan.status"
	ScanItemsKey       = "scan.items"
	ScanErrorsKey      = "scan.errors"

	TunnelDomainKey = "tunnel.domain"
	TunnelPortKey   = "tunnel.port"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RootAttributes identifies a library root. A blank path is omitted.
func RootAttributes(rootID, path string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(LibraryRootIDKey, rootID)}
	if path != "" {
		attrs = append(attrs, attribute.String(LibraryRootPathKey, path))
	}
	return attrs
}

// ScanAttributes describes a finished scan.
func ScanAttributes(status string, items, errs int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ScanStatusKey, status),
		attribute.Int(ScanItemsKey, items),
		attribute.Int(ScanErrorsKey, errs),
	}
}

// TunnelAttributes identifies one tunnel.
func TunnelAttributes(domain string, port int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TunnelDomainKey, domain),
		attribute.Int(TunnelPortKey, port),
	}
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
