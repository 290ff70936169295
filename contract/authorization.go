package contract

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Well-known capability types. Capability types are free-form strings; these are
// the ones the registry's own entry points gate on.
const (
	CapabilityChangeOwner      = "change-owner"
	CapabilityManageDelegates  = "manage-delegates"
	CapabilityManageAttributes = "manage-attributes"
)

// AuthorizationEngine decides whether an account may exercise a capability on an
// identity. It borrows read access to the owner and delegate stores; its output
// is a decision, never state.
type AuthorizationEngine struct {
	Ctx contractapi.TransactionContextInterface
}

// NewAuthorizationEngine creates a new instance of AuthorizationEngine.
func NewAuthorizationEngine(ctx contractapi.TransactionContextInterface) *AuthorizationEngine {
	return &AuthorizationEngine{Ctx: ctx}
}

// Authorize grants the owner of an identity every capability unconditionally,
// including ones never explicitly delegated. Any other account needs an
// unexpired delegate record for exactly the requested capability; there is no
// capability inheritance and a delegate cannot re-delegate.
func (ae *AuthorizationEngine) Authorize(identity, account, capability string, now uint64) (bool, error) {
	owner, err := NewOwnerStore(ae.Ctx).OwnerOf(identity)
	if err != nil {
		return false, err
	}
	if account == owner {
		return true, nil
	}
	record, err := NewDelegateStore(ae.Ctx).Get(identity, capability, account)
	if err != nil {
		return false, err
	}
	return record != nil && record.Expiry > now, nil
}
