package contract

import (
	"didregistry/model"
	regerrors "didregistry/pkg/errors"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Read-only query surface for external consumers such as a DID-document
// resolver. These functions never mutate state.

// OwnerOf returns the current owner of an identity; an identity with no owner
// record owns itself.
func (rc *RegistryContract) OwnerOf(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	logger.Debugf("Chaincode Call: OwnerOf '%s'", identity)
	if err := validateIdentity(identity); err != nil {
		return "", err
	}
	return NewOwnerStore(ctx).OwnerOf(identity)
}

// IsOwner reports whether account currently owns identity.
func (rc *RegistryContract) IsOwner(ctx contractapi.TransactionContextInterface, identity, account string) (bool, error) {
	logger.Debugf("Chaincode Call: IsOwner '%s' on '%s'", account, identity)
	if err := validateIdentity(identity); err != nil {
		return false, err
	}
	return NewOwnerStore(ctx).IsOwner(identity, account)
}

// IsValidDelegate reports whether delegate may act for identity under the given
// delegate type at the current logical time. The owner always qualifies.
func (rc *RegistryContract) IsValidDelegate(ctx contractapi.TransactionContextInterface, identity, delegateType, delegate string) (bool, error) {
	logger.Debugf("Chaincode Call: IsValidDelegate '%s' of type '%s' on '%s'", delegate, delegateType, identity)
	if err := validateIdentity(identity); err != nil {
		return false, err
	}
	if err := validateDelegateType(delegateType); err != nil {
		return false, err
	}
	now, err := currentLogicalTime(ctx)
	if err != nil {
		return false, err
	}
	return NewDelegateStore(ctx).IsValid(identity, delegateType, delegate, now)
}

// IsValidAttribute reports whether identity carries an unexpired attribute under
// name whose stored value equals the supplied one.
func (rc *RegistryContract) IsValidAttribute(ctx contractapi.TransactionContextInterface, identity, name, value string) (bool, error) {
	logger.Debugf("Chaincode Call: IsValidAttribute '%s' on '%s'", name, identity)
	if err := validateIdentity(identity); err != nil {
		return false, err
	}
	if err := validateAttributeName(name); err != nil {
		return false, err
	}
	now, err := currentLogicalTime(ctx)
	if err != nil {
		return false, err
	}
	return NewAttributeStore(ctx).IsValid(identity, name, value, now)
}

// GetAttribute returns the live attribute record for a name, expired or not.
func (rc *RegistryContract) GetAttribute(ctx contractapi.TransactionContextInterface, identity, name string) (*model.Attribute, error) {
	logger.Debugf("Chaincode Call: GetAttribute '%s' on '%s'", name, identity)
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	if err := validateAttributeName(name); err != nil {
		return nil, err
	}
	return NewAttributeStore(ctx).Get(identity, name)
}

// GetDelegate returns the delegate record for the exact (identity, type,
// delegate) triple, expired or not.
func (rc *RegistryContract) GetDelegate(ctx contractapi.TransactionContextInterface, identity, delegateType, delegate string) (*model.DelegateRecord, error) {
	logger.Debugf("Chaincode Call: GetDelegate '%s' of type '%s' on '%s'", delegate, delegateType, identity)
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	if err := validateDelegateType(delegateType); err != nil {
		return nil, err
	}
	record, err := NewDelegateStore(ctx).Get(identity, delegateType, delegate)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, regerrors.Newf(regerrors.CodeNotFound, "no delegate of type '%s' for '%s' on identity '%s'", delegateType, delegate, identity)
	}
	return record, nil
}

// ListAttributes returns every attribute record of an identity, expired ones
// included.
func (rc *RegistryContract) ListAttributes(ctx contractapi.TransactionContextInterface, identity string) ([]model.Attribute, error) {
	logger.Debugf("Chaincode Call: ListAttributes on '%s'", identity)
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	return NewAttributeStore(ctx).List(identity)
}

// ListDelegates returns every delegate record of an identity, expired ones
// included.
func (rc *RegistryContract) ListDelegates(ctx contractapi.TransactionContextInterface, identity string) ([]model.DelegateRecord, error) {
	logger.Debugf("Chaincode Call: ListDelegates on '%s'", identity)
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	return NewDelegateStore(ctx).List(identity)
}

// GetUpdateMarker returns the last off-chain update applied to an identity.
func (rc *RegistryContract) GetUpdateMarker(ctx contractapi.TransactionContextInterface, identity string) (*model.UpdateMarker, error) {
	logger.Debugf("Chaincode Call: GetUpdateMarker on '%s'", identity)
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	marker, err := NewUpdateLedger(ctx).LastUpdate(identity)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, regerrors.Newf(regerrors.CodeNotFound, "no off-chain update recorded for identity '%s'", identity)
	}
	return marker, nil
}
