// Package id generates request tokens for speech engine calls.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Token prefixes.
const (
	PrefixTrial   = "trial"
	PrefixPreview = "preview"
	PrefixExport  = "export"
)

// Generate creates a prefixed unique token, e.g. "trial-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if the system has no entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate token: %v", err))
	}
	return id
}
