package contract

import (
	"encoding/json"
	"fmt"

	"didregistry/model"
	regerrors "didregistry/pkg/errors"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var delegateLogger = flogging.MustGetLogger("didregistry.delegatestore")

// DelegateStore keeps the time-bounded capability grants of each identity.
// A grant is keyed by the exact (identity, delegate type, delegate) triple; adding
// a grant for an existing triple overwrites the prior expiry.
type DelegateStore struct {
	Ctx contractapi.TransactionContextInterface
}

// NewDelegateStore creates a new instance of DelegateStore.
func NewDelegateStore(ctx contractapi.TransactionContextInterface) *DelegateStore {
	return &DelegateStore{Ctx: ctx}
}

func (ds *DelegateStore) createDelegateCompositeKey(identity, delegateType, delegate string) (string, error) {
	return ds.Ctx.GetStub().CreateCompositeKey(delegateObjectType, []string{identity, delegateType, delegate})
}

// Get returns the delegate record for the exact triple, or nil if none exists.
// Expired records are still returned; activity is the caller's comparison.
func (ds *DelegateStore) Get(identity, delegateType, delegate string) (*model.DelegateRecord, error) {
	delegateKey, err := ds.createDelegateCompositeKey(identity, delegateType, delegate)
	if err != nil {
		return nil, fmt.Errorf("failed to create delegate composite key for '%s': %w", identity, err)
	}
	recordBytes, err := ds.Ctx.GetStub().GetState(delegateKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving delegate record for '%s': %w", identity, err)
	}
	if recordBytes == nil {
		return nil, nil
	}
	var record model.DelegateRecord
	if err := json.Unmarshal(recordBytes, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delegate record for '%s': %w", identity, err)
	}
	return &record, nil
}

// Put writes a delegate record with the given expiry, overwriting any prior
// record for the same triple.
func (ds *DelegateStore) Put(identity, delegateType, delegate string, expiry uint64) error {
	record := model.DelegateRecord{
		ObjectType:   delegateObjectType,
		Identity:     identity,
		DelegateType: delegateType,
		Delegate:     delegate,
		Expiry:       expiry,
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal delegate record for '%s': %w", identity, err)
	}
	delegateKey, err := ds.createDelegateCompositeKey(identity, delegateType, delegate)
	if err != nil {
		return fmt.Errorf("failed to create delegate composite key for '%s': %w", identity, err)
	}
	if err := ds.Ctx.GetStub().PutState(delegateKey, recordBytes); err != nil {
		return fmt.Errorf("failed to save delegate record for '%s': %w", identity, err)
	}
	delegateLogger.Debugf("Delegate '%s' of type '%s' on identity '%s' valid until %d", delegate, delegateType, identity, expiry)
	return nil
}

// Revoke sets the expiry of an existing grant to the current logical time.
// The row is retained so the revocation stays auditable.
func (ds *DelegateStore) Revoke(identity, delegateType, delegate string, now uint64) error {
	record, err := ds.Get(identity, delegateType, delegate)
	if err != nil {
		return err
	}
	if record == nil {
		return regerrors.Newf(regerrors.CodeNotFound, "no delegate of type '%s' for '%s' on identity '%s'", delegateType, delegate, identity)
	}
	return ds.Put(identity, delegateType, delegate, now)
}

// IsValid reports whether delegate may currently act for identity under the
// given delegate type: the owner always qualifies, otherwise an unexpired grant
// for exactly that triple is required. Pure predicate, no side effects.
func (ds *DelegateStore) IsValid(identity, delegateType, delegate string, now uint64) (bool, error) {
	isOwner, err := NewOwnerStore(ds.Ctx).IsOwner(identity, delegate)
	if err != nil {
		return false, err
	}
	if isOwner {
		return true, nil
	}
	record, err := ds.Get(identity, delegateType, delegate)
	if err != nil {
		return false, err
	}
	return record != nil && record.Expiry > now, nil
}

// List returns every delegate record of an identity, expired ones included.
func (ds *DelegateStore) List(identity string) ([]model.DelegateRecord, error) {
	resultsIterator, err := ds.Ctx.GetStub().GetStateByPartialCompositeKey(delegateObjectType, []string{identity})
	if err != nil {
		return nil, fmt.Errorf("failed to get delegates iterator for '%s': %w", identity, err)
	}
	defer resultsIterator.Close()

	records := []model.DelegateRecord{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			delegateLogger.Warningf("Failed to get next delegate record from iterator for '%s': %v. Skipping.", identity, iterErr)
			continue
		}
		var record model.DelegateRecord
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			delegateLogger.Warningf("Failed to unmarshal delegate record for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
