package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	regerrors "didregistry/pkg/errors"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("didregistry.registrycontract")

// Object types for composite keys, also usable as 'docType' or 'objectType' in CouchDB.
const (
	ownerObjectType          = "Owner"          // Stores OwnerRecord objects. Attribute for composite key: Identity.
	delegateObjectType       = "Delegate"       // Stores DelegateRecord objects. Attributes: Identity, DelegateType, Delegate.
	attributeObjectType      = "Attribute"      // Stores Attribute objects. Attributes: Identity, record ID.
	attributeNonceObjectType = "AttributeNonce" // Stores the per-name attribute nonce. Attributes: Identity, Name.
	updateMarkerObjectType   = "UpdateMarker"   // Stores UpdateMarker objects. Attribute: Identity.
)

// Constants for input validation and limits
const (
	maxNameLength         = 64 // Attribute names are bounded to 64 bytes.
	maxDelegateTypeLength = 64 // Capability/delegate type identifiers are bounded to 64 bytes.
)

// currentLogicalTime returns the logical clock value for this invocation: the
// transaction timestamp in Unix seconds. The timestamp is fixed in the proposal,
// so every endorsing peer observes the same value.
func currentLogicalTime(ctx contractapi.TransactionContextInterface) (uint64, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return uint64(ts.AsTime().Unix()), nil
}

// callerAccount returns the account identifier of the transaction invoker.
func callerAccount(ctx contractapi.TransactionContextInterface) (string, error) {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	return id, nil
}

// computeExpiry adds a validity duration to the given base time.
// The duration must be a positive integer and the sum must not wrap around.
func computeExpiry(base, validity uint64) (uint64, error) {
	if validity == 0 {
		return 0, regerrors.InvalidDuration("validity duration must be a positive integer")
	}
	expiry := base + validity
	if expiry < base {
		return 0, regerrors.InvalidDuration("validity duration overflows the logical clock")
	}
	return expiry, nil
}

func validateIdentity(identity string) error {
	if identity == "" {
		return regerrors.InvalidArg("identity cannot be empty")
	}
	return nil
}

func validateAttributeName(name string) error {
	if name == "" {
		return regerrors.InvalidArg("attribute name cannot be empty")
	}
	if len(name) > maxNameLength {
		return regerrors.Newf(regerrors.CodeInvalidArgument, "attribute name exceeds %d bytes", maxNameLength)
	}
	return nil
}

func validateDelegateType(delegateType string) error {
	if delegateType == "" {
		return regerrors.InvalidArg("delegate type cannot be empty")
	}
	if len(delegateType) > maxDelegateTypeLength {
		return regerrors.Newf(regerrors.CodeInvalidArgument, "delegate type exceeds %d bytes", maxDelegateTypeLength)
	}
	return nil
}

// emitRegistryEvent sends a chaincode event. Event delivery is a one-way sink;
// failures are logged and never abort the transaction.
func emitRegistryEvent(ctx contractapi.TransactionContextInterface, eventName string, payload map[string]interface{}) {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitRegistryEvent: Failed to marshal event payload for event '%s': %v", eventName, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitRegistryEvent: Failed to set event '%s': %v", eventName, errSet)
	}
}
