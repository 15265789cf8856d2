// Package configs provides the embedded configuration template written
// by `samplevault config init`. Embedding at build time keeps the
// template available in every distribution.
package configs

import _ "embed"

// ConfigTemplate is the commented example configuration.
//
//go:embed config.example.yaml
var ConfigTemplate string
