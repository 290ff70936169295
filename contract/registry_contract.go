package contract

import (
	"encoding/json"

	"didregistry/model"
	regerrors "didregistry/pkg/errors"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// RegistryContract exposes the on-chain entry points of the identity registry.
// Every account identifier is implicitly an identity the moment it is
// referenced; there is no identity-creation or identity-deletion operation.
// @contract:RegistryContract
type RegistryContract struct {
	contractapi.Contract
}

// Instantiate is called during chaincode instantiation.
// It's a lifecycle method of the contract.
func (rc *RegistryContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("RegistryContract Instantiated/Upgraded")
}

// ChangeOwner transfers ownership of an identity to newOwner. The transfer is a
// hard cutover: the former owner keeps no residual privilege unless separately
// re-delegated.
func (rc *RegistryContract) ChangeOwner(ctx contractapi.TransactionContextInterface, identity, newOwner string) error {
	logger.Infof("Chaincode Call: ChangeOwner of '%s' to '%s'", identity, newOwner)
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if newOwner == "" {
		return regerrors.InvalidArg("new owner cannot be empty")
	}

	caller, now, err := rc.invocationContext(ctx)
	if err != nil {
		return err
	}
	if err := rc.requireCapability(ctx, identity, caller, CapabilityChangeOwner, now); err != nil {
		return err
	}

	if err := NewOwnerStore(ctx).SetOwner(identity, newOwner); err != nil {
		return err
	}

	emitRegistryEvent(ctx, "OwnerChanged", map[string]interface{}{
		"identity": identity,
		"newOwner": newOwner,
		"caller":   caller,
		"time":     now,
	})
	return nil
}

// AddDelegate grants a capability of the given type to delegate for validity
// logical-time units. An existing grant for the same (identity, type, delegate)
// triple is overwritten.
func (rc *RegistryContract) AddDelegate(ctx contractapi.TransactionContextInterface, identity, delegateType, delegate string, validity uint64) error {
	logger.Infof("Chaincode Call: AddDelegate '%s' of type '%s' on '%s' for %d", delegate, delegateType, identity, validity)
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if err := validateDelegateType(delegateType); err != nil {
		return err
	}
	if delegate == "" {
		return regerrors.InvalidArg("delegate cannot be empty")
	}

	caller, now, err := rc.invocationContext(ctx)
	if err != nil {
		return err
	}
	if err := rc.requireCapability(ctx, identity, caller, CapabilityManageDelegates, now); err != nil {
		return err
	}

	expiry, err := computeExpiry(now, validity)
	if err != nil {
		return err
	}
	if err := NewDelegateStore(ctx).Put(identity, delegateType, delegate, expiry); err != nil {
		return err
	}

	emitRegistryEvent(ctx, "DelegateAdded", map[string]interface{}{
		"identity":     identity,
		"delegateType": delegateType,
		"delegate":     delegate,
		"expiry":       expiry,
		"caller":       caller,
		"time":         now,
	})
	return nil
}

// RevokeDelegate expires an existing grant immediately. The row stays on the
// ledger with expiry == now, so the revocation remains auditable.
func (rc *RegistryContract) RevokeDelegate(ctx contractapi.TransactionContextInterface, identity, delegateType, delegate string) error {
	logger.Infof("Chaincode Call: RevokeDelegate '%s' of type '%s' on '%s'", delegate, delegateType, identity)
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if err := validateDelegateType(delegateType); err != nil {
		return err
	}

	caller, now, err := rc.invocationContext(ctx)
	if err != nil {
		return err
	}
	if err := rc.requireCapability(ctx, identity, caller, CapabilityManageDelegates, now); err != nil {
		return err
	}

	if err := NewDelegateStore(ctx).Revoke(identity, delegateType, delegate, now); err != nil {
		return err
	}

	emitRegistryEvent(ctx, "DelegateRevoked", map[string]interface{}{
		"identity":     identity,
		"delegateType": delegateType,
		"delegate":     delegate,
		"caller":       caller,
		"time":         now,
	})
	return nil
}

// AddAttribute attaches a named claim to an identity, valid for the given
// number of logical-time units. An existing claim under the same name is
// overwritten in place.
func (rc *RegistryContract) AddAttribute(ctx contractapi.TransactionContextInterface, identity, name, value string, validity uint64) error {
	logger.Infof("Chaincode Call: AddAttribute '%s' on '%s' for %d", name, identity, validity)
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if err := validateAttributeName(name); err != nil {
		return err
	}

	caller, now, err := rc.invocationContext(ctx)
	if err != nil {
		return err
	}
	if err := rc.requireCapability(ctx, identity, caller, CapabilityManageAttributes, now); err != nil {
		return err
	}

	expiry, err := computeExpiry(now, validity)
	if err != nil {
		return err
	}
	if err := NewAttributeStore(ctx).Put(identity, name, value, expiry, now); err != nil {
		return err
	}

	emitRegistryEvent(ctx, "AttributeAdded", map[string]interface{}{
		"identity": identity,
		"name":     name,
		"expiry":   expiry,
		"caller":   caller,
		"time":     now,
	})
	return nil
}

// RevokeAttribute expires a claim immediately while keeping its record; the
// last known value stays queryable but is flagged invalid by the expiry.
func (rc *RegistryContract) RevokeAttribute(ctx contractapi.TransactionContextInterface, identity, name string) error {
	logger.Infof("Chaincode Call: RevokeAttribute '%s' on '%s'", name, identity)
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if err := validateAttributeName(name); err != nil {
		return err
	}

	caller, now, err := rc.invocationContext(ctx)
	if err != nil {
		return err
	}
	if err := rc.requireCapability(ctx, identity, caller, CapabilityManageAttributes, now); err != nil {
		return err
	}

	if err := NewAttributeStore(ctx).Revoke(identity, name, now); err != nil {
		return err
	}

	emitRegistryEvent(ctx, "AttributeRevoked", map[string]interface{}{
		"identity": identity,
		"name":     name,
		"caller":   caller,
		"time":     now,
	})
	return nil
}

// DeleteAttribute removes a claim entirely; subsequent lookups behave as if it
// was never added.
func (rc *RegistryContract) DeleteAttribute(ctx contractapi.TransactionContextInterface, identity, name string) error {
	logger.Infof("Chaincode Call: DeleteAttribute '%s' on '%s'", name, identity)
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if err := validateAttributeName(name); err != nil {
		return err
	}

	caller, now, err := rc.invocationContext(ctx)
	if err != nil {
		return err
	}
	if err := rc.requireCapability(ctx, identity, caller, CapabilityManageAttributes, now); err != nil {
		return err
	}

	if err := NewAttributeStore(ctx).Delete(identity, name); err != nil {
		return err
	}

	emitRegistryEvent(ctx, "AttributeDeleted", map[string]interface{}{
		"identity": identity,
		"name":     name,
		"caller":   caller,
		"time":     now,
	})
	return nil
}

// Execute applies an off-chain signed attribute transaction. The submitter may
// be anyone; authority comes from the signature inside the payload, checked by
// the verification pipeline.
func (rc *RegistryContract) Execute(ctx contractapi.TransactionContextInterface, transactionJSON string) error {
	logger.Info("Chaincode Call: Execute signed attribute transaction")
	var tx model.AttributeTransaction
	if err := json.Unmarshal([]byte(transactionJSON), &tx); err != nil {
		return regerrors.Wrap(regerrors.CodeInvalidArgument, "transaction payload is not valid JSON", err)
	}

	now, err := currentLogicalTime(ctx)
	if err != nil {
		return err
	}
	if err := NewTransactionVerifier(ctx).Execute(&tx, now); err != nil {
		return err
	}

	emitRegistryEvent(ctx, "AttributeTransactionExecuted", map[string]interface{}{
		"identity":    tx.Identity,
		"op":          tx.Op,
		"name":        tx.Name,
		"signer":      tx.Signer,
		"signedAt":    tx.SignedAt,
		"fingerprint": tx.Fingerprint(),
	})
	return nil
}

// invocationContext resolves the caller account and the logical time of the
// current invocation.
func (rc *RegistryContract) invocationContext(ctx contractapi.TransactionContextInterface) (string, uint64, error) {
	caller, err := callerAccount(ctx)
	if err != nil {
		return "", 0, err
	}
	now, err := currentLogicalTime(ctx)
	if err != nil {
		return "", 0, err
	}
	return caller, now, nil
}

// requireCapability runs the authorization engine and turns a denial into the
// typed UnauthorizedCaller failure.
func (rc *RegistryContract) requireCapability(ctx contractapi.TransactionContextInterface, identity, caller, capability string, now uint64) error {
	authorized, err := NewAuthorizationEngine(ctx).Authorize(identity, caller, capability, now)
	if err != nil {
		return err
	}
	if !authorized {
		return regerrors.Newf(regerrors.CodeUnauthorizedCaller,
			"caller '%s' is not the owner of identity '%s' nor an active %s delegate", caller, identity, capability)
	}
	return nil
}
