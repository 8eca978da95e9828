package mls

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHPKERoundTrip(t *testing.T) {
	info := randomBytes(t, 100)
	aad := randomBytes(t, 100)
	original := randomBytes(t, 100)

	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			x, err := GenerateHPKEPrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}
			y, err := DeriveHPKEPrivateKey(cs, []byte{0, 1, 2, 3})
			if err != nil {
				t.Fatal(err)
			}
			if x.Equal(y) {
				t.Fatal("generated and derived keys are equal")
			}
			if x.PublicKey.Equal(y.PublicKey) {
				t.Fatal("generated and derived public keys are equal")
			}

			encrypted, err := x.PublicKey.Encrypt(cs, info, aad, original)
			if err != nil {
				t.Fatal(err)
			}
			decrypted, err := x.Decrypt(cs, info, aad, encrypted)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(decrypted, original) {
				t.Errorf("decrypt: got %x, want %x", decrypted, original)
			}
		})
	}
}

func TestHPKEDecryptFailure(t *testing.T) {
	cs := CipherSuiteX25519_AES128GCM_SHA256_Ed25519
	sk, err := GenerateHPKEPrivateKey(cs)
	if err != nil {
		t.Fatal(err)
	}

	ct, err := sk.PublicKey.Encrypt(cs, []byte("info"), []byte("aad"), []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	tampered := &HPKECiphertext{
		KEMOutput:  ct.KEMOutput,
		Ciphertext: append([]byte(nil), ct.Ciphertext...),
	}
	tampered.Ciphertext[0] ^= 0xFF
	if _, err := sk.Decrypt(cs, []byte("info"), []byte("aad"), tampered); !errors.Is(err, ErrHPKEDecryption) {
		t.Errorf("Decrypt of tampered ciphertext = %v, want ErrHPKEDecryption", err)
	}

	if _, err := sk.Decrypt(cs, []byte("info"), []byte("wrong aad"), ct); !errors.Is(err, ErrHPKEDecryption) {
		t.Errorf("Decrypt with wrong aad = %v, want ErrHPKEDecryption", err)
	}

	if _, err := sk.Decrypt(cs, []byte("wrong info"), []byte("aad"), ct); !errors.Is(err, ErrHPKEDecryption) {
		t.Errorf("Decrypt with wrong info = %v, want ErrHPKEDecryption", err)
	}
}

func TestHPKEDeriveDeterministic(t *testing.T) {
	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			seed := []byte{0, 1, 2, 3}
			x, err := DeriveHPKEPrivateKey(cs, seed)
			if err != nil {
				t.Fatal(err)
			}
			y, err := DeriveHPKEPrivateKey(cs, seed)
			if err != nil {
				t.Fatal(err)
			}
			if !x.Equal(y) {
				t.Error("derive is not deterministic")
			}

			z, err := DeriveHPKEPrivateKey(cs, []byte{4, 5, 6, 7})
			if err != nil {
				t.Fatal(err)
			}
			if x.Equal(z) {
				t.Error("distinct seeds derived the same key")
			}

			// Seeds longer than the KEM's native size are fine too.
			if _, err := DeriveHPKEPrivateKey(cs, randomBytes(t, 96)); err != nil {
				t.Errorf("derive with long seed: %v", err)
			}
		})
	}
}

func TestHPKEParseConsistency(t *testing.T) {
	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			x, err := GenerateHPKEPrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}
			parsed, err := ParseHPKEPrivateKey(cs, x.Bytes())
			if err != nil {
				t.Fatal(err)
			}
			if !parsed.PublicKey.Equal(x.PublicKey) {
				t.Error("parsed key re-derived a different public key")
			}
		})
	}
}

func TestHPKEExportAgreement(t *testing.T) {
	info := []byte("export info")
	label := []byte("exported secret")

	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			sk, err := GenerateHPKEPrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}

			enc, exported, err := sk.PublicKey.Export(cs, info, label, 32)
			if err != nil {
				t.Fatal(err)
			}
			if len(exported) != 32 {
				t.Fatalf("len(exported) = %v, want 32", len(exported))
			}

			got, err := sk.Export(cs, info, enc, label, 32)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, exported) {
				t.Error("receiver exported a different secret")
			}

			other, err := sk.Export(cs, info, enc, []byte("other label"), 32)
			if err != nil {
				t.Fatal(err)
			}
			if bytes.Equal(other, exported) {
				t.Error("different export labels produced identical secrets")
			}
		})
	}
}

func TestHPKEPublicKeySerialization(t *testing.T) {
	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			sk, err := DeriveHPKEPrivateKey(cs, []byte{0, 1, 2, 3})
			if err != nil {
				t.Fatal(err)
			}

			raw, err := Marshal(&sk.PublicKey)
			if err != nil {
				t.Fatal(err)
			}
			var parsed HPKEPublicKey
			if err := Unmarshal(raw, &parsed); err != nil {
				t.Fatal(err)
			}
			if !parsed.Equal(sk.PublicKey) {
				t.Error("public key TLS round-trip mismatch")
			}
		})
	}
}

func TestHPKECiphertextSerialization(t *testing.T) {
	cs := CipherSuiteX25519_AES128GCM_SHA256_Ed25519
	sk, err := GenerateHPKEPrivateKey(cs)
	if err != nil {
		t.Fatal(err)
	}
	ct, err := sk.PublicKey.Encrypt(cs, nil, nil, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	raw, err := Marshal(ct)
	if err != nil {
		t.Fatal(err)
	}
	var decoded HPKECiphertext
	if err := Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	pt, err := sk.Decrypt(cs, nil, nil, &decoded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, []byte("payload")) {
		t.Errorf("decrypt after TLS round-trip: got %q", pt)
	}
}

func TestHPKEPrivateKeyWipe(t *testing.T) {
	cs := CipherSuiteX25519_AES128GCM_SHA256_Ed25519
	sk, err := GenerateHPKEPrivateKey(cs)
	if err != nil {
		t.Fatal(err)
	}
	raw := sk.Bytes()
	sk.Wipe()
	if bytes.Equal(sk.priv, raw) {
		t.Error("Wipe left the private key intact")
	}
	if !bytes.Equal(sk.priv, make([]byte, len(raw))) {
		t.Error("Wipe did not zeroize the private key")
	}
}
