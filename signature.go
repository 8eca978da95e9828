package mls

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/cloudflare/circl/sign/ed448"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/hkdf"
)

// Sign labels bound into every MLS signature. The label is the first member
// of the SignContent envelope, so a signature over one label never verifies
// under another.
var (
	SignLabelMLSContent = []byte("MLS 1.0 MLSContentTBS")
	SignLabelLeafNode   = []byte("MLS 1.0 LeafNodeTBS")
	SignLabelKeyPackage = []byte("MLS 1.0 KeyPackageTBS")
	SignLabelGroupInfo  = []byte("MLS 1.0 GroupInfoTBS")
)

// marshalSignContent encodes SignContent{label, content}, the
// domain-separation envelope every MLS signature covers.
func marshalSignContent(label, content []byte) ([]byte, error) {
	var b cryptobyte.Builder
	writeOpaque(&b, label)
	writeOpaque(&b, content)
	return b.Bytes()
}

// SignaturePublicKey holds the algorithm's serialized public key. It encodes
// in TLS as an opaque vector.
type SignaturePublicKey []byte

func (pk SignaturePublicKey) Equal(other SignaturePublicKey) bool {
	return bytes.Equal(pk, other)
}

func (pk *SignaturePublicKey) unmarshal(s *cryptobyte.String) error {
	raw, err := readOpaque(s)
	if err != nil {
		return err
	}
	*pk = raw
	return nil
}

func (pk SignaturePublicKey) marshal(b *cryptobyte.Builder) {
	writeOpaque(b, pk)
}

// Verify checks an MLS-labelled signature over message. A false return is a
// semantic outcome, not an error.
func (pk SignaturePublicKey) Verify(cs CipherSuite, label, message, signature []byte) bool {
	c, err := cs.ciphers()
	if err != nil {
		return false
	}
	content, err := marshalSignContent(label, message)
	if err != nil {
		return false
	}
	return c.sig.Verify(pk, content, signature)
}

// SignaturePrivateKey pairs the serialized private key with its derived
// public half. The private half has no TLS encoding.
type SignaturePrivateKey struct {
	priv      []byte
	PublicKey SignaturePublicKey
}

// GenerateSignaturePrivateKey creates a fresh key pair for the suite's
// signature algorithm.
func GenerateSignaturePrivateKey(cs CipherSuite) (*SignaturePrivateKey, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}
	priv, pub, err := c.sig.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &SignaturePrivateKey{priv: priv, PublicKey: pub}, nil
}

// DeriveSignaturePrivateKey deterministically derives a key pair from a seed
// of any length.
func DeriveSignaturePrivateKey(cs CipherSuite, seed []byte) (*SignaturePrivateKey, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}
	priv, pub, err := c.sig.DeriveKeyPair(seed)
	if err != nil {
		return nil, err
	}
	return &SignaturePrivateKey{priv: priv, PublicKey: pub}, nil
}

// ParseSignaturePrivateKey reconstructs a key pair from the serialized
// private key, re-deriving the public half.
func ParseSignaturePrivateKey(cs CipherSuite, data []byte) (*SignaturePrivateKey, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}
	pub, err := c.sig.PublicKey(data)
	if err != nil {
		return nil, err
	}
	return &SignaturePrivateKey{priv: append([]byte(nil), data...), PublicKey: pub}, nil
}

// Sign produces an MLS-labelled signature over message.
func (sk *SignaturePrivateKey) Sign(cs CipherSuite, label, message []byte) ([]byte, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}
	content, err := marshalSignContent(label, message)
	if err != nil {
		return nil, err
	}
	return c.sig.Sign(sk.priv, content)
}

// Bytes returns a copy of the serialized private key.
func (sk *SignaturePrivateKey) Bytes() []byte {
	return append([]byte(nil), sk.priv...)
}

func (sk *SignaturePrivateKey) Equal(other *SignaturePrivateKey) bool {
	return bytes.Equal(sk.priv, other.priv) && sk.PublicKey.Equal(other.PublicKey)
}

// Wipe zeroizes the private key material.
func (sk *SignaturePrivateKey) Wipe() {
	wipe(sk.priv)
}

type signatureScheme interface {
	GenerateKeyPair() (priv []byte, pub SignaturePublicKey, err error)
	DeriveKeyPair(seed []byte) (priv []byte, pub SignaturePublicKey, err error)
	PublicKey(priv []byte) (SignaturePublicKey, error)
	Sign(priv, message []byte) ([]byte, error)
	Verify(pub, message, sig []byte) bool
}

// deriveSignatureSeed stretches an arbitrary-length seed to the algorithm's
// key size with the labelled HKDF construction the KEMs use, with a
// "SIG"-domain suite ID built from the TLS signature-scheme code.
func deriveSignatureSeed(hash crypto.Hash, scheme uint16, seed []byte, size int) []byte {
	suiteID := []byte{'S', 'I', 'G', byte(scheme >> 8), byte(scheme)}

	ikm := make([]byte, 0, len(hpkeVersionLabel)+len(suiteID)+len("dkp_prk")+len(seed))
	ikm = append(ikm, hpkeVersionLabel...)
	ikm = append(ikm, suiteID...)
	ikm = append(ikm, "dkp_prk"...)
	ikm = append(ikm, seed...)
	prk := hkdf.Extract(hash.New, ikm, nil)

	info := []byte{byte(size >> 8), byte(size)}
	info = append(info, hpkeVersionLabel...)
	info = append(info, suiteID...)
	info = append(info, "sk"...)

	out := make([]byte, size)
	r := hkdf.Expand(hash.New, prk, info)
	if _, err := io.ReadFull(r, out); err != nil {
		panic(err) // output shorter than 255 hash blocks
	}
	return out
}

type ed25519SignatureScheme struct{}

func (ed25519SignatureScheme) GenerateKeyPair() ([]byte, SignaturePublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return priv.Seed(), SignaturePublicKey(pub), nil
}

func (ed25519SignatureScheme) DeriveKeyPair(seed []byte) ([]byte, SignaturePublicKey, error) {
	raw := deriveSignatureSeed(crypto.SHA256, uint16(SignatureSchemeEd25519), seed, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(raw)
	return raw, SignaturePublicKey(priv.Public().(ed25519.PublicKey)), nil
}

func (ed25519SignatureScheme) PublicKey(priv []byte) (SignaturePublicKey, error) {
	if len(priv) != ed25519.SeedSize {
		return nil, fmt.Errorf("mls: invalid Ed25519 private key size: %w", ErrInvalidParameter)
	}
	key := ed25519.NewKeyFromSeed(priv)
	return SignaturePublicKey(key.Public().(ed25519.PublicKey)), nil
}

func (ed25519SignatureScheme) Sign(priv, message []byte) ([]byte, error) {
	if len(priv) != ed25519.SeedSize {
		return nil, fmt.Errorf("mls: invalid Ed25519 private key size: %w", ErrInvalidParameter)
	}
	key := ed25519.NewKeyFromSeed(priv)
	return ed25519.Sign(key, message), nil
}

func (ed25519SignatureScheme) Verify(pub, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

type ecdsaSignatureScheme struct {
	curve elliptic.Curve
	hash  crypto.Hash
	id    uint16
}

func (scheme ecdsaSignatureScheme) scalarSize() int {
	return (scheme.curve.Params().BitSize + 7) / 8
}

func (scheme ecdsaSignatureScheme) hashSum(message []byte) []byte {
	h := scheme.hash.New()
	h.Write(message)
	return h.Sum(nil)
}

func (scheme ecdsaSignatureScheme) GenerateKeyPair() ([]byte, SignaturePublicKey, error) {
	key, err := ecdsa.GenerateKey(scheme.curve, rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	priv := key.D.FillBytes(make([]byte, scheme.scalarSize()))
	pub := elliptic.Marshal(scheme.curve, key.X, key.Y)
	return priv, SignaturePublicKey(pub), nil
}

func (scheme ecdsaSignatureScheme) DeriveKeyPair(seed []byte) ([]byte, SignaturePublicKey, error) {
	order := scheme.curve.Params().N
	size := scheme.scalarSize()

	// Rejection-sample a scalar in (0, order), mirroring the NIST KEM
	// DeriveKeyPair loop.
	for counter := 0; counter < 256; counter++ {
		candidate := deriveSignatureSeed(scheme.hash, scheme.id, append(append([]byte(nil), seed...), byte(counter)), size)
		if scheme.curve.Params().BitSize%8 != 0 {
			candidate[0] &= byte(1<<(scheme.curve.Params().BitSize%8)) - 1
		}
		d := new(big.Int).SetBytes(candidate)
		if d.Sign() > 0 && d.Cmp(order) < 0 {
			return candidate, scheme.publicFromScalar(candidate), nil
		}
	}
	return nil, nil, fmt.Errorf("mls: ECDSA key derivation failed: %w", ErrInvalidParameter)
}

func (scheme ecdsaSignatureScheme) publicFromScalar(priv []byte) SignaturePublicKey {
	x, y := scheme.curve.ScalarBaseMult(priv)
	return SignaturePublicKey(elliptic.Marshal(scheme.curve, x, y))
}

func (scheme ecdsaSignatureScheme) PublicKey(priv []byte) (SignaturePublicKey, error) {
	order := scheme.curve.Params().N
	d := new(big.Int).SetBytes(priv)
	if len(priv) != scheme.scalarSize() || d.Sign() == 0 || d.Cmp(order) >= 0 {
		return nil, fmt.Errorf("mls: invalid ECDSA private key: %w", ErrInvalidParameter)
	}
	return scheme.publicFromScalar(priv), nil
}

func (scheme ecdsaSignatureScheme) Sign(priv, message []byte) ([]byte, error) {
	if _, err := scheme.PublicKey(priv); err != nil {
		return nil, err
	}
	d := new(big.Int).SetBytes(priv)
	x, y := scheme.curve.ScalarBaseMult(priv)
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: scheme.curve, X: x, Y: y},
		D:         d,
	}
	return ecdsa.SignASN1(rand.Reader, key, scheme.hashSum(message))
}

func (scheme ecdsaSignatureScheme) Verify(pub, message, sig []byte) bool {
	x, y := elliptic.Unmarshal(scheme.curve, pub)
	if x == nil {
		return false
	}
	key := &ecdsa.PublicKey{Curve: scheme.curve, X: x, Y: y}
	return ecdsa.VerifyASN1(key, scheme.hashSum(message), sig)
}

type ed448SignatureScheme struct{}

func (ed448SignatureScheme) GenerateKeyPair() ([]byte, SignaturePublicKey, error) {
	pub, priv, err := ed448.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return priv.Seed(), SignaturePublicKey(pub), nil
}

func (ed448SignatureScheme) DeriveKeyPair(seed []byte) ([]byte, SignaturePublicKey, error) {
	raw := deriveSignatureSeed(crypto.SHA512, uint16(SignatureSchemeEd448), seed, ed448.SeedSize)
	priv := ed448.NewKeyFromSeed(raw)
	return raw, SignaturePublicKey(priv.Public().(ed448.PublicKey)), nil
}

func (ed448SignatureScheme) PublicKey(priv []byte) (SignaturePublicKey, error) {
	if len(priv) != ed448.SeedSize {
		return nil, fmt.Errorf("mls: invalid Ed448 private key size: %w", ErrInvalidParameter)
	}
	key := ed448.NewKeyFromSeed(priv)
	return SignaturePublicKey(key.Public().(ed448.PublicKey)), nil
}

func (ed448SignatureScheme) Sign(priv, message []byte) ([]byte, error) {
	if len(priv) != ed448.SeedSize {
		return nil, fmt.Errorf("mls: invalid Ed448 private key size: %w", ErrInvalidParameter)
	}
	key := ed448.NewKeyFromSeed(priv)
	return ed448.Sign(key, message, ""), nil
}

func (ed448SignatureScheme) Verify(pub, message, sig []byte) bool {
	if len(pub) != ed448.PublicKeySize {
		return false
	}
	return ed448.Verify(ed448.PublicKey(pub), message, sig, "")
}
