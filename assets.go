// Package incognish holds assets embedded into the binaries.
package incognish

import _ "embed"

// DefaultRegistry is the broker catalog used when no registry file is configured.
//
//go:embed brokers.yaml
var DefaultRegistry []byte
