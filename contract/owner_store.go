package contract

import (
	"encoding/json"
	"fmt"

	"didregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var ownerLogger = flogging.MustGetLogger("didregistry.ownerstore")

// OwnerStore tracks the current owning account of each identity.
// Absence of a record means the identity owns itself, so ownership is always
// resolvable and no identity-creation step exists.
type OwnerStore struct {
	Ctx contractapi.TransactionContextInterface
}

// NewOwnerStore creates a new instance of OwnerStore.
func NewOwnerStore(ctx contractapi.TransactionContextInterface) *OwnerStore {
	return &OwnerStore{Ctx: ctx}
}

func (os *OwnerStore) createOwnerCompositeKey(identity string) (string, error) {
	return os.Ctx.GetStub().CreateCompositeKey(ownerObjectType, []string{identity})
}

// OwnerOf returns the current owner of an identity.
// If ownership was never changed, the identity is its own owner.
func (os *OwnerStore) OwnerOf(identity string) (string, error) {
	ownerKey, err := os.createOwnerCompositeKey(identity)
	if err != nil {
		return "", fmt.Errorf("failed to create owner composite key for '%s': %w", identity, err)
	}
	recordBytes, err := os.Ctx.GetStub().GetState(ownerKey)
	if err != nil {
		return "", fmt.Errorf("ledger error retrieving owner record for '%s': %w", identity, err)
	}
	if recordBytes == nil {
		return identity, nil
	}
	var record model.OwnerRecord
	if err := json.Unmarshal(recordBytes, &record); err != nil {
		return "", fmt.Errorf("failed to unmarshal owner record for '%s': %w", identity, err)
	}
	return record.Owner, nil
}

// IsOwner reports whether account is the current owner of identity.
func (os *OwnerStore) IsOwner(identity, account string) (bool, error) {
	owner, err := os.OwnerOf(identity)
	if err != nil {
		return false, err
	}
	return owner == account, nil
}

// SetOwner overwrites the owner record for an identity. Authorization is the
// caller's responsibility; no history of prior owners is retained here.
func (os *OwnerStore) SetOwner(identity, newOwner string) error {
	record := model.OwnerRecord{
		ObjectType: ownerObjectType,
		Identity:   identity,
		Owner:      newOwner,
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal owner record for '%s': %w", identity, err)
	}
	ownerKey, err := os.createOwnerCompositeKey(identity)
	if err != nil {
		return fmt.Errorf("failed to create owner composite key for '%s': %w", identity, err)
	}
	if err := os.Ctx.GetStub().PutState(ownerKey, recordBytes); err != nil {
		return fmt.Errorf("failed to save owner record for '%s': %w", identity, err)
	}
	ownerLogger.Debugf("Owner of identity '%s' set to '%s'", identity, newOwner)
	return nil
}
