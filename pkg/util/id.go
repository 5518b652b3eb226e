// Package util contains any functions used across the application that don't match
// any other package
package util

import gonanoid "github.com/matoous/go-nanoid/v2"

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandStr returns a random alphanumeric string of length n. It's meant for
// things like request IDs. Panics if the system random source fails
func RandStr(n int) string {
	return gonanoid.MustGenerate(charset, n)
}
