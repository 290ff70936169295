package contract

import (
	"crypto/ed25519"
	"encoding/base64"

	"didregistry/model"
	regerrors "didregistry/pkg/errors"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var verifierLogger = flogging.MustGetLogger("didregistry.verifier")

// TransactionVerifier validates and applies off-chain signed attribute
// transactions. Each gate aborts the whole invocation; the ledger commits the
// write set only when every gate has passed, so no partial application is
// observable.
type TransactionVerifier struct {
	Ctx contractapi.TransactionContextInterface
}

// NewTransactionVerifier creates a new instance of TransactionVerifier.
func NewTransactionVerifier(ctx contractapi.TransactionContextInterface) *TransactionVerifier {
	return &TransactionVerifier{Ctx: ctx}
}

// Execute runs the verification pipeline over a signed transaction at the
// current logical time: signature, authorization, replay protection, the
// requested mutation, and finally the update marker.
func (tv *TransactionVerifier) Execute(tx *model.AttributeTransaction, now uint64) error {
	if err := validateIdentity(tx.Identity); err != nil {
		return err
	}
	if !tx.Op.Valid() {
		return regerrors.Newf(regerrors.CodeInvalidArgument, "unknown op-code '%s'", tx.Op)
	}
	if err := validateAttributeName(tx.Name); err != nil {
		return err
	}

	// Gate 1: the signature must cover the canonical payload encoding.
	if err := tv.checkSignature(tx); err != nil {
		return err
	}

	// Gate 2: the signer must hold manage-attributes on the identity right now.
	authorized, err := NewAuthorizationEngine(tv.Ctx).Authorize(tx.Identity, tx.Signer, CapabilityManageAttributes, now)
	if err != nil {
		return err
	}
	if !authorized {
		return regerrors.Newf(regerrors.CodeUnauthorizedSigner,
			"signer '%s' is not the owner of identity '%s' nor an active %s delegate", tx.Signer, tx.Identity, CapabilityManageAttributes)
	}

	// Gate 3: the asserted time must advance past the last applied update,
	// otherwise this is a replay of an immutable, forever-verifiable payload.
	updates := NewUpdateLedger(tv.Ctx)
	previous, err := updates.LastUpdate(tx.Identity)
	if err != nil {
		return err
	}
	if previous != nil && tx.SignedAt <= previous.Time {
		return regerrors.Newf(regerrors.CodeNonMonotonicUpdate,
			"asserted time %d does not advance past recorded time %d for identity '%s'", tx.SignedAt, previous.Time, tx.Identity)
	}

	// Gate 4: apply the requested mutation with the signer as caller.
	attributes := NewAttributeStore(tv.Ctx)
	switch tx.Op {
	case model.OpAdd:
		expiry, expErr := computeExpiry(tx.SignedAt, tx.Validity)
		if expErr != nil {
			return expErr
		}
		if err := attributes.Put(tx.Identity, tx.Name, tx.Value, expiry, now); err != nil {
			return err
		}
	case model.OpRevoke:
		if err := attributes.Revoke(tx.Identity, tx.Name, now); err != nil {
			return err
		}
	case model.OpDelete:
		if err := attributes.Delete(tx.Identity, tx.Name); err != nil {
			return err
		}
	}

	// Gate 5: commit the marker that makes this payload unreplayable.
	if err := updates.RecordUpdate(tx.Identity, tx.Signer, tx.SignedAt, tx.Fingerprint()); err != nil {
		return err
	}

	verifierLogger.Infof("Executed signed %s of attribute '%s' on identity '%s' by '%s' (asserted time %d)",
		tx.Op, tx.Name, tx.Identity, tx.Signer, tx.SignedAt)
	return nil
}

// checkSignature verifies the ed25519 signature over the canonical encoding.
// The signer account identifier is the base64 encoding of the public key.
func (tv *TransactionVerifier) checkSignature(tx *model.AttributeTransaction) error {
	publicKey, err := base64.StdEncoding.DecodeString(tx.Signer)
	if err != nil {
		return regerrors.Wrap(regerrors.CodeBadSignature, "signer is not a base64 public key", err)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return regerrors.Newf(regerrors.CodeBadSignature, "signer public key is %d bytes, want %d", len(publicKey), ed25519.PublicKeySize)
	}
	if len(tx.Signature) != ed25519.SignatureSize {
		return regerrors.Newf(regerrors.CodeBadSignature, "signature is %d bytes, want %d", len(tx.Signature), ed25519.SignatureSize)
	}
	if !ed25519.Verify(publicKey, tx.SigningBytes(), tx.Signature) {
		return regerrors.BadSignature("signature does not verify against the signer's public key")
	}
	return nil
}
