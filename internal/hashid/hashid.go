// Package hashid generates the identifiers assigned to documents on insert.
//
// An identifier is the 128-bit MD5 digest of the document's name and a
// namespace, salted with cryptographically random bytes and the current
// time, encoded with the URL-safe base64 alphabet without padding. The
// digest is 16 bytes, so the encoding is always exactly 22 characters.
// Downstream code relies on that fixed length.
//
// Identifiers deliberately bind their appearance to content. They are not
// counters and not UUIDs: two inserts of the same logical document still
// produce two different identifiers because of the injected entropy.
package hashid

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"time"
)

// Length is the fixed length of an encoded identifier.
// 16 bytes * 8 bits / 6 bits per char = 21.33, rounded up to 22.
const Length = 22

// saltLen is the number of random bytes mixed into each digest.
const saltLen = 20

// New derives an identifier from name and namespace.
// It always succeeds; the zero-entropy case is still a valid digest.
func New(name, namespace string) string {
	sample := make([]byte, 0, len(name)+len(namespace)+saltLen+8)
	sample = append(sample, name...)
	sample = append(sample, namespace...)

	var salt [saltLen + 8]byte
	_, _ = rand.Read(salt[:saltLen])
	binary.BigEndian.PutUint64(salt[saltLen:], uint64(time.Now().UnixMilli()))
	sample = append(sample, salt[:]...)

	sum := md5.Sum(sample)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Valid reports whether s has the shape of a generated identifier:
// 22 characters from the URL-safe base64 alphabet.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}
