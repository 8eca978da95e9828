package mls

// Reference identifiers are 16 octets for every ciphersuite.
const refLength = 16

var (
	refLabelKeyPackage = []byte("MLS 1.0 KeyPackage Reference")
	refLabelProposal   = []byte("MLS 1.0 Proposal Reference")
)

// MakeKeyPackageRef derives the KeyPackageRef identifier from a
// TLS-serialized KeyPackage:
//
//	KDF.expand(KDF.extract("", value), "MLS 1.0 KeyPackage Reference", 16)
func MakeKeyPackageRef(cs CipherSuite, value []byte) ([]byte, error) {
	return makeRef(cs, refLabelKeyPackage, value)
}

// MakeProposalRef derives the ProposalRef identifier. Despite the label, the
// input is the TLS serialization of the entire enclosing authenticated
// content, not just the proposal body; the label byte string is fixed by the
// wire protocol.
func MakeProposalRef(cs CipherSuite, value []byte) ([]byte, error) {
	return makeRef(cs, refLabelProposal, value)
}

func makeRef(cs CipherSuite, label, value []byte) ([]byte, error) {
	c, err := cs.ciphers()
	if err != nil {
		return nil, err
	}
	prk := c.kdf.Extract(value, nil)
	return c.kdf.Expand(prk, label, refLength), nil
}
