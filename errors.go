package mls

import "errors"

// Error kinds surfaced by the core. Call sites wrap these with context, so
// match with errors.Is.
var (
	// ErrInvalidParameter reports an uninitialized or unsupported
	// ciphersuite, an unsupported algorithm ID, or key material of an
	// inconsistent length.
	ErrInvalidParameter = errors.New("mls: invalid parameter")

	// ErrDecode reports a failed TLS-presentation decode: truncated input,
	// an unknown discriminator, a length prefix past the end of the buffer,
	// or trailing bytes after a top-level decode.
	ErrDecode = errors.New("mls: decode error")

	// ErrHPKEDecryption reports an HPKE open that produced no plaintext:
	// tag mismatch, ciphertext corruption, or a wrong info/aad binding.
	ErrHPKEDecryption = errors.New("mls: hpke decryption error")

	// ErrHexDecode reports odd-length or non-hex input to a hex decode.
	ErrHexDecode = errors.New("mls: hex decode error")
)
