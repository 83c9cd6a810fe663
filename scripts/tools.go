//go:build tools
// +build tools

// Package scripts pins the code generators used by go:generate directives.
package scripts

import (
	_ "github.com/vektra/mockery/v2"
)
