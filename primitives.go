package mls

import (
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
)

// Per-KEM parameters for RFC 9180 DeriveKeyPair. circl's kem.Scheme only
// accepts seeds of exactly SeedSize, while MLS derives key pairs from
// arbitrary-length secrets, so the labelled derivation is done here and the
// resulting private key is handed back to circl.
type kemParams struct {
	id      uint16
	kdf     hpke.KDF
	nsk     int
	bitmask byte           // high-byte mask for NIST scalar candidates
	curve   elliptic.Curve // nil for the X25519/X448 KEMs
}

var kemRegistry = map[hpke.KEM]kemParams{
	hpke.KEM_X25519_HKDF_SHA256: {id: 0x0020, kdf: hpke.KDF_HKDF_SHA256, nsk: 32},
	hpke.KEM_X448_HKDF_SHA512:   {id: 0x0021, kdf: hpke.KDF_HKDF_SHA512, nsk: 56},
	hpke.KEM_P256_HKDF_SHA256:   {id: 0x0010, kdf: hpke.KDF_HKDF_SHA256, nsk: 32, bitmask: 0xFF, curve: elliptic.P256()},
	hpke.KEM_P521_HKDF_SHA512:   {id: 0x0012, kdf: hpke.KDF_HKDF_SHA512, nsk: 66, bitmask: 0x01, curve: elliptic.P521()},
}

const hpkeVersionLabel = "HPKE-v1"

// labeledExtract implements LabeledExtract from RFC 9180, section 4.
func labeledExtract(kdf hpke.KDF, suiteID, salt, label, ikm []byte) []byte {
	labeledIKM := make([]byte, 0, len(hpkeVersionLabel)+len(suiteID)+len(label)+len(ikm))
	labeledIKM = append(labeledIKM, hpkeVersionLabel...)
	labeledIKM = append(labeledIKM, suiteID...)
	labeledIKM = append(labeledIKM, label...)
	labeledIKM = append(labeledIKM, ikm...)
	return kdf.Extract(labeledIKM, salt)
}

// labeledExpand implements LabeledExpand from RFC 9180, section 4.
func labeledExpand(kdf hpke.KDF, suiteID, prk, label, info []byte, length uint16) []byte {
	labeledInfo := make([]byte, 2, 2+len(hpkeVersionLabel)+len(suiteID)+len(label)+len(info))
	labeledInfo[0] = byte(length >> 8)
	labeledInfo[1] = byte(length)
	labeledInfo = append(labeledInfo, hpkeVersionLabel...)
	labeledInfo = append(labeledInfo, suiteID...)
	labeledInfo = append(labeledInfo, label...)
	labeledInfo = append(labeledInfo, info...)
	return kdf.Expand(prk, labeledInfo, uint(length))
}

// deriveKEMKeyPair implements DeriveKeyPair from RFC 9180, section 7.1.3, for
// an input keying material of any length.
func deriveKEMKeyPair(k hpke.KEM, ikm []byte) (kem.PublicKey, kem.PrivateKey, error) {
	p, ok := kemRegistry[k]
	if !ok {
		return nil, nil, fmt.Errorf("mls: unsupported KEM %d: %w", k, ErrInvalidParameter)
	}

	suiteID := []byte{'K', 'E', 'M', byte(p.id >> 8), byte(p.id)}
	dkpPRK := labeledExtract(p.kdf, suiteID, nil, []byte("dkp_prk"), ikm)

	var raw []byte
	if p.curve == nil {
		raw = labeledExpand(p.kdf, suiteID, dkpPRK, []byte("sk"), nil, uint16(p.nsk))
	} else {
		order := p.curve.Params().N
		for counter := 0; ; counter++ {
			if counter > 255 {
				return nil, nil, fmt.Errorf("mls: KEM key derivation failed: %w", ErrInvalidParameter)
			}
			candidate := labeledExpand(p.kdf, suiteID, dkpPRK, []byte("candidate"), []byte{byte(counter)}, uint16(p.nsk))
			candidate[0] &= p.bitmask
			d := new(big.Int).SetBytes(candidate)
			if d.Sign() > 0 && d.Cmp(order) < 0 {
				raw = candidate
				break
			}
		}
	}

	priv, err := k.Scheme().UnmarshalBinaryPrivateKey(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("mls: derived KEM private key rejected: %v", err)
	}
	return priv.Public(), priv, nil
}

func serializeKEMPrivateKey(priv kem.PrivateKey) ([]byte, error) {
	raw, err := priv.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("mls: serializing KEM private key: %v", err)
	}
	return raw, nil
}

func serializeKEMPublicKey(pub kem.PublicKey) ([]byte, error) {
	raw, err := pub.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("mls: serializing KEM public key: %v", err)
	}
	return raw, nil
}
