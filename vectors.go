package mls

import (
	"encoding"
	"encoding/hex"
	"fmt"
	"math/bits"
)

// Integer-tagged tree positions shared with the interop harness. They encode
// in JSON as plain numbers.
type (
	// LeafCount is the number of leaves in a ratchet tree.
	LeafCount uint32
	// NodeCount is the number of nodes in a ratchet tree.
	NodeCount uint32
	// LeafIndex addresses a leaf.
	LeafIndex uint32
	// NodeIndex addresses a node, leaf or intermediate.
	NodeIndex uint32
)

// HexBytes is a byte sequence that encodes in JSON as a hex string, the
// representation shared by all MLS interop test vectors.
type HexBytes []byte

var (
	_ encoding.TextMarshaler   = HexBytes(nil)
	_ encoding.TextUnmarshaler = (*HexBytes)(nil)
)

func (hb HexBytes) MarshalText() ([]byte, error) {
	dst := make([]byte, hex.EncodedLen(len(hb)))
	hex.Encode(dst, hb)
	return dst, nil
}

func (hb *HexBytes) UnmarshalText(text []byte) error {
	*hb = make([]byte, hex.DecodedLen(len(text)))
	_, err := hex.Decode(*hb, text)
	return err
}

// Positions in the array representation of a complete balanced binary tree
// with n leaves: leaves sit at even indices 0, 2, ..., a node at level k has
// its low k bits set, and a level-k node's children sit 2^(k-1) below and
// above it. Bit k+1 of a non-root node says whether it is the left (0) or
// right (1) child of its parent.

func treeWidth(n LeafCount) NodeCount {
	if n == 0 {
		return 0
	}
	return NodeCount(2*uint32(n) - 1)
}

func treeRoot(n LeafCount) NodeIndex {
	w := uint32(treeWidth(n))
	return NodeIndex((1 << (bits.Len32(w) - 1)) - 1)
}

func nodeLevel(x NodeIndex) uint32 {
	return uint32(bits.TrailingZeros32(^uint32(x)))
}

func nodeLeft(x NodeIndex) (NodeIndex, bool) {
	k := nodeLevel(x)
	if k == 0 {
		return 0, false
	}
	return x - 1<<(k-1), true
}

func nodeRight(x NodeIndex) (NodeIndex, bool) {
	k := nodeLevel(x)
	if k == 0 {
		return 0, false
	}
	return x + 1<<(k-1), true
}

func nodeParent(n LeafCount, x NodeIndex) (NodeIndex, bool) {
	if x == treeRoot(n) {
		return 0, false
	}
	k := nodeLevel(x)
	if (x>>(k+1))&1 == 0 {
		return x + 1<<k, true
	}
	return x - 1<<k, true
}

func nodeSibling(n LeafCount, x NodeIndex) (NodeIndex, bool) {
	if x == treeRoot(n) {
		return 0, false
	}
	k := nodeLevel(x)
	if (x>>(k+1))&1 == 0 {
		return x + 1<<(k+1), true
	}
	return x - 1<<(k+1), true
}

// TreeMathTestVector checks the array-tree relations for a tree of a given
// size. Absent relations (a leaf's children, the root's parent) are null.
type TreeMathTestVector struct {
	NLeaves LeafCount    `json:"n_leaves"`
	NNodes  NodeCount    `json:"n_nodes"`
	Root    NodeIndex    `json:"root"`
	Left    []*NodeIndex `json:"left"`
	Right   []*NodeIndex `json:"right"`
	Parent  []*NodeIndex `json:"parent"`
	Sibling []*NodeIndex `json:"sibling"`
}

func optionalNodeIndex(x NodeIndex, ok bool) *NodeIndex {
	if !ok {
		return nil
	}
	return &x
}

func optionalNodeIndexEqual(x, y *NodeIndex) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	return *x == *y
}

// Generate fills the vector for a tree with n leaves.
func (tv *TreeMathTestVector) Generate(n LeafCount) {
	w := treeWidth(n)
	*tv = TreeMathTestVector{
		NLeaves: n,
		NNodes:  w,
		Root:    treeRoot(n),
		Left:    make([]*NodeIndex, w),
		Right:   make([]*NodeIndex, w),
		Parent:  make([]*NodeIndex, w),
		Sibling: make([]*NodeIndex, w),
	}
	for i := NodeIndex(0); i < NodeIndex(w); i++ {
		tv.Left[i] = optionalNodeIndex(nodeLeft(i))
		tv.Right[i] = optionalNodeIndex(nodeRight(i))
		tv.Parent[i] = optionalNodeIndex(nodeParent(n, i))
		tv.Sibling[i] = optionalNodeIndex(nodeSibling(n, i))
	}
}

// Verify recomputes every derived field and reports the first mismatch.
func (tv *TreeMathTestVector) Verify() error {
	n := tv.NLeaves
	if w := treeWidth(n); w != tv.NNodes {
		return fmt.Errorf("mls: width(%v) = %v, want %v", n, w, tv.NNodes)
	}
	if r := treeRoot(n); r != tv.Root {
		return fmt.Errorf("mls: root(%v) = %v, want %v", n, r, tv.Root)
	}
	for i, want := range tv.Left {
		x := NodeIndex(i)
		if got := optionalNodeIndex(nodeLeft(x)); !optionalNodeIndexEqual(got, want) {
			return fmt.Errorf("mls: left(%v) mismatch", x)
		}
	}
	for i, want := range tv.Right {
		x := NodeIndex(i)
		if got := optionalNodeIndex(nodeRight(x)); !optionalNodeIndexEqual(got, want) {
			return fmt.Errorf("mls: right(%v) mismatch", x)
		}
	}
	for i, want := range tv.Parent {
		x := NodeIndex(i)
		if got := optionalNodeIndex(nodeParent(n, x)); !optionalNodeIndexEqual(got, want) {
			return fmt.Errorf("mls: parent(%v) mismatch", x)
		}
	}
	for i, want := range tv.Sibling {
		x := NodeIndex(i)
		if got := optionalNodeIndex(nodeSibling(n, x)); !optionalNodeIndexEqual(got, want) {
			return fmt.Errorf("mls: sibling(%v) mismatch", x)
		}
	}
	return nil
}

// SenderDataInfo is the sender-data sample of an EncryptionTestVector.
type SenderDataInfo struct {
	Ciphertext HexBytes `json:"ciphertext"`
	Key        HexBytes `json:"key"`
	Nonce      HexBytes `json:"nonce"`
}

// RatchetStep is one generation of a leaf's hash ratchet.
type RatchetStep struct {
	Key        HexBytes `json:"key"`
	Nonce      HexBytes `json:"nonce"`
	Ciphertext HexBytes `json:"ciphertext"`
}

// LeafInfo collects the ratchet samples for one leaf.
type LeafInfo struct {
	Generations            uint32        `json:"generations"`
	HandshakeContentAuth   HexBytes      `json:"handshake_content_auth"`
	ApplicationContentAuth HexBytes      `json:"application_content_auth"`
	Handshake              []RatchetStep `json:"handshake"`
	Application            []RatchetStep `json:"application"`
}

// EncryptionTestVector exercises the secret tree and message protection.
type EncryptionTestVector struct {
	CipherSuite       CipherSuite    `json:"cipher_suite"`
	Tree              HexBytes       `json:"tree"`
	EncryptionSecret  HexBytes       `json:"encryption_secret"`
	SenderDataSecret  HexBytes       `json:"sender_data_secret"`
	PaddingSize       uint32         `json:"padding_size"`
	SenderDataInfo    SenderDataInfo `json:"sender_data_info"`
	AuthenticatedData HexBytes       `json:"authenticated_data"`
	Leaves            []LeafInfo     `json:"leaves"`
}

// ExternalPSKInfo is an external pre-shared key injected into an epoch.
type ExternalPSKInfo struct {
	ID     HexBytes `json:"id"`
	Nonce  HexBytes `json:"nonce"`
	Secret HexBytes `json:"secret"`
}

// Epoch holds every secret derived by the key schedule in one epoch.
type Epoch struct {
	TreeHash                HexBytes          `json:"tree_hash"`
	CommitSecret            HexBytes          `json:"commit_secret"`
	ConfirmedTranscriptHash HexBytes          `json:"confirmed_transcript_hash"`
	ExternalPSKs            []ExternalPSKInfo `json:"external_psks"`
	PSKNonce                HexBytes          `json:"psk_nonce"`
	PSKSecret               HexBytes          `json:"psk_secret"`
	GroupContext            HexBytes          `json:"group_context"`
	JoinerSecret            HexBytes          `json:"joiner_secret"`
	WelcomeSecret           HexBytes          `json:"welcome_secret"`
	InitSecret              HexBytes          `json:"init_secret"`
	SenderDataSecret        HexBytes          `json:"sender_data_secret"`
	EncryptionSecret        HexBytes          `json:"encryption_secret"`
	ExporterSecret          HexBytes          `json:"exporter_secret"`
	AuthenticationSecret    HexBytes          `json:"authentication_secret"`
	ExternalSecret          HexBytes          `json:"external_secret"`
	ConfirmationKey         HexBytes          `json:"confirmation_key"`
	MembershipKey           HexBytes          `json:"membership_key"`
	ResumptionSecret        HexBytes          `json:"resumption_secret"`
	ExternalPub             HexBytes          `json:"external_pub"`
}

// KeyScheduleTestVector walks the key schedule across epochs.
type KeyScheduleTestVector struct {
	CipherSuite       CipherSuite `json:"cipher_suite"`
	GroupID           HexBytes    `json:"group_id"`
	InitialInitSecret HexBytes    `json:"initial_init_secret"`
	Epochs            []Epoch     `json:"epochs"`
}

// TranscriptTestVector exercises the transcript-hash chain across a commit.
type TranscriptTestVector struct {
	CipherSuite                   CipherSuite `json:"cipher_suite"`
	GroupID                       HexBytes    `json:"group_id"`
	Epoch                         uint64      `json:"epoch"`
	TreeHashBefore                HexBytes    `json:"tree_hash_before"`
	ConfirmedTranscriptHashBefore HexBytes    `json:"confirmed_transcript_hash_before"`
	InterimTranscriptHashBefore   HexBytes    `json:"interim_transcript_hash_before"`
	ConfirmationKey               HexBytes    `json:"confirmation_key"`
	SignatureKey                  HexBytes    `json:"signature_key"`
	Commit                        HexBytes    `json:"commit"`
	GroupContext                  HexBytes    `json:"group_context"`
	ConfirmedTranscriptHashAfter  HexBytes    `json:"confirmed_transcript_hash_after"`
	InterimTranscriptHashAfter    HexBytes    `json:"interim_transcript_hash_after"`
}

// TreeKEMTestVector exercises ratchet-tree joins and updates.
type TreeKEMTestVector struct {
	CipherSuite           CipherSuite `json:"cipher_suite"`
	GroupID               HexBytes    `json:"group_id"`
	RatchetTreeBefore     HexBytes    `json:"ratchet_tree_before"`
	AddSender             LeafIndex   `json:"add_sender"`
	MyLeafSecret          HexBytes    `json:"my_leaf_secret"`
	MyLeafNode            HexBytes    `json:"my_leaf_node"`
	MyPathSecret          HexBytes    `json:"my_path_secret"`
	UpdateSender          LeafIndex   `json:"update_sender"`
	UpdatePath            HexBytes    `json:"update_path"`
	UpdateGroupContext    HexBytes    `json:"update_group_context"`
	TreeHashBefore        HexBytes    `json:"tree_hash_before"`
	RootSecretAfterAdd    HexBytes    `json:"root_secret_after_add"`
	RootSecretAfterUpdate HexBytes    `json:"root_secret_after_update"`
	RatchetTreeAfter      HexBytes    `json:"ratchet_tree_after"`
	TreeHashAfter         HexBytes    `json:"tree_hash_after"`
}

// MessagesTestVector holds one TLS serialization of every MLS message type,
// for parse/re-serialize checks.
type MessagesTestVector struct {
	KeyPackage           HexBytes `json:"key_package"`
	RatchetTree          HexBytes `json:"ratchet_tree"`
	GroupInfo            HexBytes `json:"group_info"`
	GroupSecrets         HexBytes `json:"group_secrets"`
	Welcome              HexBytes `json:"welcome"`
	AddProposal          HexBytes `json:"add_proposal"`
	UpdateProposal       HexBytes `json:"update_proposal"`
	RemoveProposal       HexBytes `json:"remove_proposal"`
	PreSharedKeyProposal HexBytes `json:"pre_shared_key_proposal"`
	ReInitProposal       HexBytes `json:"re_init_proposal"`
	ExternalInitProposal HexBytes `json:"external_init_proposal"`
	Commit               HexBytes `json:"commit"`
	ContentAuthApp       HexBytes `json:"content_auth_app"`
	ContentAuthProposal  HexBytes `json:"content_auth_proposal"`
	ContentAuthCommit    HexBytes `json:"content_auth_commit"`
	MLSPlaintext         HexBytes `json:"mls_plaintext"`
	MLSCiphertext        HexBytes `json:"mls_ciphertext"`
}
