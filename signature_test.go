package mls

import (
	"bytes"
	"testing"
)

func TestSignatureRoundTrip(t *testing.T) {
	label := []byte("label")
	message := []byte{0x01, 0x02, 0x03, 0x04}

	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			a, err := GenerateSignaturePrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}
			b, err := GenerateSignaturePrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}
			if a.Equal(b) {
				t.Fatal("two generated keys are equal")
			}
			if a.PublicKey.Equal(b.PublicKey) {
				t.Fatal("two generated public keys are equal")
			}

			signature, err := a.Sign(cs, label, message)
			if err != nil {
				t.Fatal(err)
			}
			if !a.PublicKey.Verify(cs, label, message, signature) {
				t.Error("signature did not verify")
			}

			// A signature never verifies under someone else's key.
			if b.PublicKey.Verify(cs, label, message, signature) {
				t.Error("signature verified under an unrelated key")
			}
		})
	}
}

func TestSignatureLabelDomainSeparation(t *testing.T) {
	message := []byte("content")

	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			sk, err := GenerateSignaturePrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}

			signature, err := sk.Sign(cs, SignLabelKeyPackage, message)
			if err != nil {
				t.Fatal(err)
			}
			if !sk.PublicKey.Verify(cs, SignLabelKeyPackage, message, signature) {
				t.Fatal("signature did not verify under its own label")
			}
			for _, other := range [][]byte{SignLabelMLSContent, SignLabelLeafNode, SignLabelGroupInfo} {
				if sk.PublicKey.Verify(cs, other, message, signature) {
					t.Errorf("signature verified under label %q", other)
				}
			}
		})
	}
}

func TestSignatureDeriveDeterministic(t *testing.T) {
	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			seed := []byte{0, 1, 2, 3}
			x, err := DeriveSignaturePrivateKey(cs, seed)
			if err != nil {
				t.Fatal(err)
			}
			y, err := DeriveSignaturePrivateKey(cs, seed)
			if err != nil {
				t.Fatal(err)
			}
			if !x.Equal(y) {
				t.Error("derive is not deterministic")
			}

			z, err := DeriveSignaturePrivateKey(cs, []byte{4, 5, 6, 7})
			if err != nil {
				t.Fatal(err)
			}
			if x.Equal(z) {
				t.Error("distinct seeds derived the same key")
			}

			signature, err := x.Sign(cs, SignLabelLeafNode, []byte("msg"))
			if err != nil {
				t.Fatal(err)
			}
			if !y.PublicKey.Verify(cs, SignLabelLeafNode, []byte("msg"), signature) {
				t.Error("derived twin could not verify")
			}
		})
	}
}

func TestSignatureParseConsistency(t *testing.T) {
	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			x, err := GenerateSignaturePrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}
			parsed, err := ParseSignaturePrivateKey(cs, x.Bytes())
			if err != nil {
				t.Fatal(err)
			}
			if !parsed.PublicKey.Equal(x.PublicKey) {
				t.Error("parsed key re-derived a different public key")
			}

			signature, err := parsed.Sign(cs, SignLabelMLSContent, []byte("msg"))
			if err != nil {
				t.Fatal(err)
			}
			if !x.PublicKey.Verify(cs, SignLabelMLSContent, []byte("msg"), signature) {
				t.Error("signature from parsed key did not verify")
			}
		})
	}
}

func TestSignaturePublicKeySerialization(t *testing.T) {
	for _, cs := range AllSupportedSuites {
		t.Run(cs.String(), func(t *testing.T) {
			sk, err := GenerateSignaturePrivateKey(cs)
			if err != nil {
				t.Fatal(err)
			}

			raw, err := Marshal(&sk.PublicKey)
			if err != nil {
				t.Fatal(err)
			}
			var parsed SignaturePublicKey
			if err := Unmarshal(raw, &parsed); err != nil {
				t.Fatal(err)
			}
			if !parsed.Equal(sk.PublicKey) {
				t.Error("public key TLS round-trip mismatch")
			}
		})
	}
}

func TestSignContentEnvelope(t *testing.T) {
	// The envelope is SignContent{label, content}: two opaque vectors, label
	// bytes inlined.
	raw, err := marshalSignContent([]byte("MLS 1.0 KeyPackageTBS"), []byte{0xAA})
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte{21}, []byte("MLS 1.0 KeyPackageTBS")...)
	want = append(want, 1, 0xAA)
	if !bytes.Equal(raw, want) {
		t.Errorf("marshalSignContent = %x, want %x", raw, want)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	cs := CipherSuiteX25519_AES128GCM_SHA256_Ed25519
	sk, err := GenerateSignaturePrivateKey(cs)
	if err != nil {
		t.Fatal(err)
	}
	if sk.PublicKey.Verify(cs, SignLabelMLSContent, []byte("msg"), []byte("not a signature")) {
		t.Error("garbage signature verified")
	}
	if sk.PublicKey.Verify(CipherSuiteUnknown, SignLabelMLSContent, []byte("msg"), nil) {
		t.Error("verify succeeded on the unknown suite")
	}
}
