package mls

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// fromHex decodes a hex string, rejecting odd-length or non-hex input.
func fromHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("mls: invalid hex string: %v: %w", err, ErrHexDecode)
	}
	return b, nil
}

func toHex(b []byte) string {
	return hex.EncodeToString(b)
}

// wipe overwrites b with zeros. Best effort: Go gives no guarantee that
// earlier copies of the slice's contents are gone.
func wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
