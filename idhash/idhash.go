// Package idhash generates short, URL-safe identifiers.
package idhash

import (
	"crypto/rand"

	"github.com/jxskiss/base62"
)

// NewRandomID generates a random base62-encoded id.
func NewRandomID() string {
	var r [16]byte
	if _, err := rand.Read(r[:]); err != nil {
		panic(err)
	}
	return base62.StdEncoding.EncodeToString(r[:])
}
