package mls

import (
	"crypto"
	"crypto/elliptic"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"

	"github.com/cloudflare/circl/hpke"
	"golang.org/x/crypto/cryptobyte"
)

// CipherSuite identifies an MLS ciphersuite: a (KEM, KDF, AEAD, hash,
// signature) bundle drawn from the MLS v1 registry. The zero value is the
// uninitialized suite; every operation on it fails with ErrInvalidParameter.
type CipherSuite uint16

const (
	CipherSuiteUnknown                                CipherSuite = 0x0000
	CipherSuiteX25519_AES128GCM_SHA256_Ed25519        CipherSuite = 0x0001
	CipherSuiteP256_AES128GCM_SHA256_P256             CipherSuite = 0x0002
	CipherSuiteX25519_CHACHA20POLY1305_SHA256_Ed25519 CipherSuite = 0x0003
	CipherSuiteX448_AES256GCM_SHA512_Ed448            CipherSuite = 0x0004
	CipherSuiteP521_AES256GCM_SHA512_P521             CipherSuite = 0x0005
	CipherSuiteX448_CHACHA20POLY1305_SHA512_Ed448     CipherSuite = 0x0006
)

// AllSupportedSuites lists every ciphersuite this package implements.
var AllSupportedSuites = []CipherSuite{
	CipherSuiteX25519_AES128GCM_SHA256_Ed25519,
	CipherSuiteP256_AES128GCM_SHA256_P256,
	CipherSuiteX25519_CHACHA20POLY1305_SHA256_Ed25519,
	CipherSuiteX448_AES256GCM_SHA512_Ed448,
	CipherSuiteP521_AES256GCM_SHA512_P521,
	CipherSuiteX448_CHACHA20POLY1305_SHA512_Ed448,
}

// SignatureScheme is the TLS signature-scheme code used inside MLS
// credentials.
type SignatureScheme uint16

const (
	SignatureSchemeECDSASecp256r1SHA256 SignatureScheme = 0x0403
	SignatureSchemeECDSASecp521r1SHA512 SignatureScheme = 0x0603
	SignatureSchemeEd25519              SignatureScheme = 0x0807
	SignatureSchemeEd448                SignatureScheme = 0x0808
)

// suiteCiphers is the immutable primitive bundle behind a ciphersuite.
type suiteCiphers struct {
	name   string
	hpke   hpke.Suite
	kem    hpke.KEM
	kdf    hpke.KDF
	aead   hpke.AEAD
	hash   crypto.Hash
	sig    signatureScheme
	scheme SignatureScheme
}

// Initialized once at package load and read-only afterwards, so suites are
// safe to share across goroutines.
var suiteRegistry = map[CipherSuite]*suiteCiphers{
	CipherSuiteX25519_AES128GCM_SHA256_Ed25519: {
		name:   "MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519",
		hpke:   hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES128GCM),
		kem:    hpke.KEM_X25519_HKDF_SHA256,
		kdf:    hpke.KDF_HKDF_SHA256,
		aead:   hpke.AEAD_AES128GCM,
		hash:   crypto.SHA256,
		sig:    ed25519SignatureScheme{},
		scheme: SignatureSchemeEd25519,
	},
	CipherSuiteP256_AES128GCM_SHA256_P256: {
		name:   "MLS_128_DHKEMP256_AES128GCM_SHA256_P256",
		hpke:   hpke.NewSuite(hpke.KEM_P256_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES128GCM),
		kem:    hpke.KEM_P256_HKDF_SHA256,
		kdf:    hpke.KDF_HKDF_SHA256,
		aead:   hpke.AEAD_AES128GCM,
		hash:   crypto.SHA256,
		sig:    ecdsaSignatureScheme{elliptic.P256(), crypto.SHA256, 0x0403},
		scheme: SignatureSchemeECDSASecp256r1SHA256,
	},
	CipherSuiteX25519_CHACHA20POLY1305_SHA256_Ed25519: {
		name:   "MLS_128_DHKEMX25519_CHACHA20POLY1305_SHA256_Ed25519",
		hpke:   hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305),
		kem:    hpke.KEM_X25519_HKDF_SHA256,
		kdf:    hpke.KDF_HKDF_SHA256,
		aead:   hpke.AEAD_ChaCha20Poly1305,
		hash:   crypto.SHA256,
		sig:    ed25519SignatureScheme{},
		scheme: SignatureSchemeEd25519,
	},
	CipherSuiteX448_AES256GCM_SHA512_Ed448: {
		name:   "MLS_256_DHKEMX448_AES256GCM_SHA512_Ed448",
		hpke:   hpke.NewSuite(hpke.KEM_X448_HKDF_SHA512, hpke.KDF_HKDF_SHA512, hpke.AEAD_AES256GCM),
		kem:    hpke.KEM_X448_HKDF_SHA512,
		kdf:    hpke.KDF_HKDF_SHA512,
		aead:   hpke.AEAD_AES256GCM,
		hash:   crypto.SHA512,
		sig:    ed448SignatureScheme{},
		scheme: SignatureSchemeEd448,
	},
	CipherSuiteP521_AES256GCM_SHA512_P521: {
		name:   "MLS_256_DHKEMP521_AES256GCM_SHA512_P521",
		hpke:   hpke.NewSuite(hpke.KEM_P521_HKDF_SHA512, hpke.KDF_HKDF_SHA512, hpke.AEAD_AES256GCM),
		kem:    hpke.KEM_P521_HKDF_SHA512,
		kdf:    hpke.KDF_HKDF_SHA512,
		aead:   hpke.AEAD_AES256GCM,
		hash:   crypto.SHA512,
		sig:    ecdsaSignatureScheme{elliptic.P521(), crypto.SHA512, 0x0603},
		scheme: SignatureSchemeECDSASecp521r1SHA512,
	},
	CipherSuiteX448_CHACHA20POLY1305_SHA512_Ed448: {
		name:   "MLS_256_DHKEMX448_CHACHA20POLY1305_SHA512_Ed448",
		hpke:   hpke.NewSuite(hpke.KEM_X448_HKDF_SHA512, hpke.KDF_HKDF_SHA512, hpke.AEAD_ChaCha20Poly1305),
		kem:    hpke.KEM_X448_HKDF_SHA512,
		kdf:    hpke.KDF_HKDF_SHA512,
		aead:   hpke.AEAD_ChaCha20Poly1305,
		hash:   crypto.SHA512,
		sig:    ed448SignatureScheme{},
		scheme: SignatureSchemeEd448,
	},
}

func (cs CipherSuite) ciphers() (*suiteCiphers, error) {
	if cs == CipherSuiteUnknown {
		return nil, fmt.Errorf("mls: uninitialized cipher suite: %w", ErrInvalidParameter)
	}
	c, ok := suiteRegistry[cs]
	if !ok {
		return nil, fmt.Errorf("mls: unsupported cipher suite %d: %w", cs, ErrInvalidParameter)
	}
	return c, nil
}

// IsSupported reports whether the suite is in the MLS v1 registry.
func (cs CipherSuite) IsSupported() bool {
	_, ok := suiteRegistry[cs]
	return ok
}

func (cs CipherSuite) String() string {
	if c, ok := suiteRegistry[cs]; ok {
		return c.name
	}
	return fmt.Sprintf("unknown(%d)", uint16(cs))
}

// SignatureScheme returns the TLS signature-scheme code matching the suite's
// signature algorithm.
func (cs CipherSuite) SignatureScheme() (SignatureScheme, error) {
	c, err := cs.ciphers()
	if err != nil {
		return 0, err
	}
	return c.scheme, nil
}

// Hash returns the suite's digest algorithm.
func (cs CipherSuite) Hash() (crypto.Hash, error) {
	c, err := cs.ciphers()
	if err != nil {
		return 0, err
	}
	return c.hash, nil
}

// SecretSize returns the byte length of secrets handled by the suite's key
// schedule, which equals the digest output size.
func (cs CipherSuite) SecretSize() (int, error) {
	c, err := cs.ciphers()
	if err != nil {
		return 0, err
	}
	return c.hash.Size(), nil
}

// kdfPrefix is prepended to every ExpandWithLabel label.
const kdfPrefix = "mls10 "

// ExpandWithLabel implements the MLS labelled HKDF-Expand: the label gets the
// "mls10 " prefix, then HKDFLabel{length, label, context} is TLS-encoded and
// used as the expand info.
func (cs CipherSuite) ExpandWithLabel(secret, label, context []byte, length uint16) ([]byte, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}

	mlsLabel := append([]byte(kdfPrefix), label...)

	var b cryptobyte.Builder
	b.AddUint16(length)
	writeOpaque(&b, mlsLabel)
	writeOpaque(&b, context)
	kdfLabel, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	return c.kdf.Expand(secret, kdfLabel, uint(length)), nil
}

// DeriveSecret is ExpandWithLabel with an empty context and the suite's
// secret size as the output length.
func (cs CipherSuite) DeriveSecret(secret, label []byte) ([]byte, error) {
	size, err := cs.SecretSize()
	if err != nil {
		return nil, err
	}
	return cs.ExpandWithLabel(secret, label, nil, uint16(size))
}
