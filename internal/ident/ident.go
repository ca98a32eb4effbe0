// Package ident generates the opaque identifiers used for sessions and
// seats. Identifiers are UUIDv7 values encoded as 26-character Crockford
// base32 strings with a short type prefix, so they sort by creation time
// and survive reconnects within a session (a seat id is not a transport
// connection id).
package ident

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource interface for dependency injection of randomness
type RandSource interface {
	Intn(n int) int
}

// Generator handles identifier generation with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// NewSessionID creates a new session identifier.
func NewSessionID() string {
	return NewGenerator(nil).SessionID()
}

// NewSeatID creates a new seat identifier.
func NewSeatID() string {
	return NewGenerator(nil).SeatID()
}

// SessionID creates a session identifier using the generator's RandSource.
func (g *Generator) SessionID() string {
	return "sess_" + g.encoded()
}

// SeatID creates a seat identifier using the generator's RandSource.
func (g *Generator) SeatID() string {
	return "seat_" + g.encoded()
}

// Token creates an opaque credential, used to reclaim a seat on reconnect.
func (g *Generator) Token() string {
	return "tok_" + g.encoded()
}

func (g *Generator) encoded() string {
	return encodeBase32(g.generateUUIDv7())
}

// generateUUIDv7 creates a 128-bit UUIDv7
func (g *Generator) generateUUIDv7() [16]byte {
	var uuid [16]byte

	// 48-bit millisecond timestamp, then version/variant bits over random data.
	now := time.Now().UnixMilli()
	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	if g.randSource != nil {
		// Use provided RandSource for deterministic testing
		for i := 6; i < 16; i++ {
			uuid[i] = byte(g.randSource.Intn(256))
		}
	} else {
		if _, err := rand.Read(uuid[6:]); err != nil {
			panic("failed to generate random bytes: " + err.Error())
		}
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x70
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return uuid
}

// encodeBase32 encodes a 128-bit value as a 26-character base32 string
func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)

	// Encode 5 bits per character, walking the 128-bit value left to right.
	for i := 0; i < 26; i++ {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8
		if byteIndex < 16 {
			if bitIndex <= 3 {
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}

		result[i] = alphabet[value]
	}

	return string(result)
}

// Validate checks that an identifier carries the expected prefix and a valid
// 26-character base32 payload.
func Validate(id, prefix string) error {
	if !strings.HasPrefix(id, prefix+"_") {
		return fmt.Errorf("identifier %q missing prefix %q", id, prefix)
	}
	body := strings.TrimPrefix(id, prefix+"_")
	if len(body) != 26 {
		return fmt.Errorf("identifier body must be exactly 26 characters, got %d", len(body))
	}
	if body[0] > '7' {
		return fmt.Errorf("identifier first character must be 0-7, got %c", body[0])
	}
	for i, char := range body {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
