package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// AttributeOp is the operation requested by a signed attribute transaction.
type AttributeOp string

const (
	OpAdd    AttributeOp = "add"
	OpRevoke AttributeOp = "revoke"
	OpDelete AttributeOp = "delete"
)

// Valid reports whether the op-code is one of the known operations.
func (op AttributeOp) Valid() bool {
	return op == OpAdd || op == OpRevoke || op == OpDelete
}

// AttributeTransaction is an off-chain signed payload authorizing an attribute
// update. JSON field order carries no meaning; the signature covers SigningBytes.
type AttributeTransaction struct {
	Identity  string      `json:"identity"`  // Identity the update applies to
	Op        AttributeOp `json:"op"`        // Requested operation: add, revoke or delete
	Name      string      `json:"name"`      // Attribute name
	Value     string      `json:"value"`     // Attribute value (ignored for revoke/delete)
	Validity  uint64      `json:"validity"`  // Requested validity duration in logical-time units
	SignedAt  uint64      `json:"signedAt"`  // Logical time asserted by the signer
	Signer    string      `json:"signer"`    // Base64 ed25519 public key, doubling as account identifier
	Signature []byte      `json:"signature"` // ed25519 signature over SigningBytes
}

// SigningBytes returns the canonical byte encoding the signature covers.
// Each field is length-prefixed (uvarint) so the encoding is unambiguous and
// independent of JSON field order.
func (tx *AttributeTransaction) SigningBytes() []byte {
	var num [8]byte
	buf := make([]byte, 0, 64+len(tx.Identity)+len(tx.Name)+len(tx.Value))
	buf = appendField(buf, []byte(tx.Identity))
	buf = appendField(buf, []byte(tx.Op))
	buf = appendField(buf, []byte(tx.Name))
	buf = appendField(buf, []byte(tx.Value))
	binary.BigEndian.PutUint64(num[:], tx.Validity)
	buf = appendField(buf, num[:])
	binary.BigEndian.PutUint64(num[:], tx.SignedAt)
	buf = appendField(buf, num[:])
	return buf
}

// Fingerprint returns the hex sha256 digest of the canonical payload encoding,
// recorded in the update marker after a successful execution.
func (tx *AttributeTransaction) Fingerprint() string {
	sum := sha256.Sum256(tx.SigningBytes())
	return hex.EncodeToString(sum[:])
}

func appendField(buf, field []byte) []byte {
	var n [binary.MaxVarintLen64]byte
	buf = append(buf, n[:binary.PutUvarint(n[:], uint64(len(field)))]...)
	return append(buf, field...)
}
