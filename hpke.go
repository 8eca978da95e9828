package mls

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
	"golang.org/x/crypto/cryptobyte"
)

// HPKECiphertext is the output of HPKE base-mode encryption to a public key:
// the KEM encapsulation followed by the AEAD ciphertext.
type HPKECiphertext struct {
	KEMOutput  []byte
	Ciphertext []byte
}

func (ct *HPKECiphertext) unmarshal(s *cryptobyte.String) error {
	*ct = HPKECiphertext{}
	var err error
	if ct.KEMOutput, err = readOpaque(s); err != nil {
		return err
	}
	ct.Ciphertext, err = readOpaque(s)
	return err
}

func (ct *HPKECiphertext) marshal(b *cryptobyte.Builder) {
	writeOpaque(b, ct.KEMOutput)
	writeOpaque(b, ct.Ciphertext)
}

// HPKEPublicKey holds the KEM-serialized public key. It encodes in TLS as an
// opaque vector.
type HPKEPublicKey []byte

func (pk HPKEPublicKey) Equal(other HPKEPublicKey) bool {
	return bytes.Equal(pk, other)
}

func (pk *HPKEPublicKey) unmarshal(s *cryptobyte.String) error {
	raw, err := readOpaque(s)
	if err != nil {
		return err
	}
	*pk = raw
	return nil
}

func (pk HPKEPublicKey) marshal(b *cryptobyte.Builder) {
	writeOpaque(b, pk)
}

// Encrypt seals pt to the public key under HPKE base mode with the given
// info and aad.
func (pk HPKEPublicKey) Encrypt(cs CipherSuite, info, aad, pt []byte) (*HPKECiphertext, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}

	pub, err := c.kem.Scheme().UnmarshalBinaryPublicKey(pk)
	if err != nil {
		return nil, fmt.Errorf("mls: parsing HPKE public key: %v", err)
	}

	sender, err := c.hpke.NewSender(pub, info)
	if err != nil {
		return nil, err
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, err
	}
	ciphertext, err := sealer.Seal(pt, aad)
	if err != nil {
		return nil, err
	}

	return &HPKECiphertext{KEMOutput: enc, Ciphertext: ciphertext}, nil
}

// Export runs HPKE base-mode setup to the public key and exports a secret of
// the given length under label. It returns the KEM output the receiver needs
// to export the same secret.
func (pk HPKEPublicKey) Export(cs CipherSuite, info, label []byte, length uint) (enc, exported []byte, err error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, nil, err
	}

	pub, err := c.kem.Scheme().UnmarshalBinaryPublicKey(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("mls: parsing HPKE public key: %v", err)
	}

	sender, err := c.hpke.NewSender(pub, info)
	if err != nil {
		return nil, nil, err
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	return enc, sealer.Export(label, length), nil
}

// HPKEPrivateKey pairs the KEM-serialized private key with its derived
// public half. The private half has no TLS encoding.
type HPKEPrivateKey struct {
	priv      []byte
	PublicKey HPKEPublicKey
}

// GenerateHPKEPrivateKey creates a fresh key pair for the suite's KEM.
func GenerateHPKEPrivateKey(cs CipherSuite) (*HPKEPrivateKey, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}

	pub, priv, err := c.kem.Scheme().GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return newHPKEPrivateKey(priv, pub)
}

// DeriveHPKEPrivateKey deterministically derives a key pair from a seed of
// any length, per the KEM's DeriveKeyPair.
func DeriveHPKEPrivateKey(cs CipherSuite, seed []byte) (*HPKEPrivateKey, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}

	pub, priv, err := deriveKEMKeyPair(c.kem, seed)
	if err != nil {
		return nil, err
	}
	return newHPKEPrivateKey(priv, pub)
}

// ParseHPKEPrivateKey reconstructs a key pair from the KEM-serialized
// private key, re-deriving the public half.
func ParseHPKEPrivateKey(cs CipherSuite, data []byte) (*HPKEPrivateKey, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}

	priv, err := c.kem.Scheme().UnmarshalBinaryPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("mls: parsing HPKE private key: %v: %w", err, ErrInvalidParameter)
	}
	return newHPKEPrivateKey(priv, priv.Public())
}

func newHPKEPrivateKey(priv kem.PrivateKey, pub kem.PublicKey) (*HPKEPrivateKey, error) {
	privData, err := serializeKEMPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	pubData, err := serializeKEMPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &HPKEPrivateKey{priv: privData, PublicKey: pubData}, nil
}

// Bytes returns a copy of the KEM-serialized private key.
func (sk *HPKEPrivateKey) Bytes() []byte {
	return append([]byte(nil), sk.priv...)
}

func (sk *HPKEPrivateKey) Equal(other *HPKEPrivateKey) bool {
	return bytes.Equal(sk.priv, other.priv) && sk.PublicKey.Equal(other.PublicKey)
}

// Wipe zeroizes the private key material.
func (sk *HPKEPrivateKey) Wipe() {
	wipe(sk.priv)
}

// Decrypt opens an HPKECiphertext produced by Encrypt with the matching
// public key, info and aad.
func (sk *HPKEPrivateKey) Decrypt(cs CipherSuite, info, aad []byte, ct *HPKECiphertext) ([]byte, error) {
	opener, err := sk.setupBaseR(cs, ct.KEMOutput, info)
	if err != nil {
		return nil, err
	}

	pt, err := opener.Open(ct.Ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("mls: hpke open: %v: %w", err, ErrHPKEDecryption)
	}
	return pt, nil
}

// Export recomputes the secret exported by HPKEPublicKey.Export given the
// sender's KEM output.
func (sk *HPKEPrivateKey) Export(cs CipherSuite, info, enc, label []byte, length uint) ([]byte, error) {
	opener, err := sk.setupBaseR(cs, enc, info)
	if err != nil {
		return nil, err
	}
	return opener.Export(label, length), nil
}

func (sk *HPKEPrivateKey) setupBaseR(cs CipherSuite, enc, info []byte) (hpke.Opener, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}

	priv, err := c.kem.Scheme().UnmarshalBinaryPrivateKey(sk.priv)
	if err != nil {
		return nil, fmt.Errorf("mls: parsing HPKE private key: %v: %w", err, ErrInvalidParameter)
	}

	receiver, err := c.hpke.NewReceiver(priv, info)
	if err != nil {
		return nil, err
	}
	return receiver.Setup(enc)
}
