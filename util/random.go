// Package util contains small helpers shared by the container codec and
// the command line tools.
package util

import (
	"math/rand"
	"sync"
	"time"
)

// Lowercase is the character set used for generated mask slugs.
const Lowercase = "abcdefghijklmnopqrstuvwxyz"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomString returns a random string of the given length drawn from the
// given character set. Panics if the character set is empty.
func RandomString(length int, charset string) string {
	if len(charset) == 0 {
		panic("util: empty character set")
	}
	b := make([]byte, length)
	rngMu.Lock()
	for i := range b {
		b[i] = charset[rng.Intn(len(charset))]
	}
	rngMu.Unlock()
	return string(b)
}
