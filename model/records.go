package model

// OwnerRecord maps an identity to its current owning account.
// Absence of a record means the identity owns itself.
type OwnerRecord struct {
	ObjectType string `json:"objectType"` // Set to the composite key object type (Owner)
	Identity   string `json:"identity"`   // Account identifier acting as an identity
	Owner      string `json:"owner"`      // Current owning account identifier
}

// DelegateRecord grants a time-bounded capability on an identity to another account.
// A record with Expiry <= current logical time is expired but still present; revocation
// only moves Expiry to "now", it never removes the row.
type DelegateRecord struct {
	ObjectType   string `json:"objectType"`   // Set to the composite key object type (Delegate)
	Identity     string `json:"identity"`     // Identity the capability is granted on
	DelegateType string `json:"delegateType"` // Capability type, e.g. manage-attributes
	Delegate     string `json:"delegate"`     // Account the capability is granted to
	Expiry       uint64 `json:"expiry"`       // Logical time the grant stops being valid
}

// Attribute is a named, valued, expiring claim attached to an identity.
// The record identifier is derived from (identity, name, nonce) so a deleted and
// re-added attribute gets a fresh identifier.
type Attribute struct {
	ObjectType string `json:"objectType"` // Set to the composite key object type (Attribute)
	Identity   string `json:"identity"`   // Identity the claim is attached to
	Name       string `json:"name"`       // Attribute name
	Value      string `json:"value"`      // Attribute value bytes
	Expiry     uint64 `json:"expiry"`     // Logical time the claim stops being valid
	Creation   uint64 `json:"creation"`   // Logical time the record was first written
	Nonce      uint64 `json:"nonce"`      // Nonce the record identifier was derived from
}

// UpdateMarker tracks the last off-chain-signed update applied to an identity.
// Its only purpose is replay protection: a signed transaction whose asserted time is
// not strictly greater than Time is rejected.
type UpdateMarker struct {
	ObjectType  string `json:"objectType"`  // Set to the composite key object type (UpdateMarker)
	Identity    string `json:"identity"`    // Identity the update applied to
	UpdatedBy   string `json:"updatedBy"`   // Account that signed the update
	Time        uint64 `json:"time"`        // Logical time asserted by the signer
	Fingerprint string `json:"fingerprint"` // Hex fingerprint of the applied payload
}
