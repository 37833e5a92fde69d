// Package gecko embeds a small Blue Gecko API subset. The commands use it
// as their built-in schema when no API definition file is given, and the
// package tests use it as a fixture.
package gecko

import (
	_ "embed"

	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
)

//go:embed subset.yaml
var subset []byte

// YAML returns the raw YAML definition.
func YAML() []byte {
	return append([]byte(nil), subset...)
}

// New returns the parsed subset. It panics if the embedded definition is
// invalid, which only happens if the file itself is broken.
func New() *schema.Schema {
	s, err := schema.ParseYAML(subset)
	if err != nil {
		panic("gecko: " + err.Error())
	}
	return s
}
