// Package openapi embeds the OpenAPI document for the ritlog API.
// It is served by the HTTP server at /openapi.yaml.
package openapi

import _ "embed"

// Document contains the raw bytes of openapi.yaml, embedded at compile time.
//
//go:embed openapi.yaml
var Document []byte
