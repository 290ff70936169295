package contract

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"didregistry/model"
	regerrors "didregistry/pkg/errors"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var attributeLogger = flogging.MustGetLogger("didregistry.attributestore")

// AttributeStore keeps the named, valued, expiring claims of each identity.
// Records are keyed by a digest of (identity, name, nonce); the per-name nonce is
// bumped on deletion so a re-added attribute gets a fresh record identifier.
type AttributeStore struct {
	Ctx contractapi.TransactionContextInterface
}

// NewAttributeStore creates a new instance of AttributeStore.
func NewAttributeStore(ctx contractapi.TransactionContextInterface) *AttributeStore {
	return &AttributeStore{Ctx: ctx}
}

// attributeRecordID derives the record identifier for an attribute.
// Fields are length-prefixed so distinct inputs never collide by concatenation.
func attributeRecordID(identity, name string, nonce uint64) string {
	var num [8]byte
	binary.BigEndian.PutUint64(num[:], nonce)
	h := sha256.New()
	for _, field := range [][]byte{[]byte(identity), []byte(name), num[:]} {
		var n [binary.MaxVarintLen64]byte
		h.Write(n[:binary.PutUvarint(n[:], uint64(len(field)))])
		h.Write(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (as *AttributeStore) createAttributeCompositeKey(identity, recordID string) (string, error) {
	return as.Ctx.GetStub().CreateCompositeKey(attributeObjectType, []string{identity, recordID})
}

func (as *AttributeStore) createNonceCompositeKey(identity, name string) (string, error) {
	return as.Ctx.GetStub().CreateCompositeKey(attributeNonceObjectType, []string{identity, name})
}

// nonceOf returns the next nonce to use for creating an attribute under name.
// The live record, if any, was created with nonce-1.
func (as *AttributeStore) nonceOf(identity, name string) (uint64, error) {
	nonceKey, err := as.createNonceCompositeKey(identity, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create attribute nonce key for '%s': %w", identity, err)
	}
	nonceBytes, err := as.Ctx.GetStub().GetState(nonceKey)
	if err != nil {
		return 0, fmt.Errorf("ledger error retrieving attribute nonce for '%s': %w", identity, err)
	}
	if nonceBytes == nil {
		return 0, nil
	}
	nonce, err := strconv.ParseUint(string(nonceBytes), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt attribute nonce '%s' for '%s': %w", string(nonceBytes), identity, err)
	}
	return nonce, nil
}

func (as *AttributeStore) putNonce(identity, name string, nonce uint64) error {
	nonceKey, err := as.createNonceCompositeKey(identity, name)
	if err != nil {
		return fmt.Errorf("failed to create attribute nonce key for '%s': %w", identity, err)
	}
	if err := as.Ctx.GetStub().PutState(nonceKey, []byte(strconv.FormatUint(nonce, 10))); err != nil {
		return fmt.Errorf("failed to save attribute nonce for '%s': %w", identity, err)
	}
	return nil
}

// lookup returns the live attribute record for a name and its ledger key,
// or a nil record if none exists.
func (as *AttributeStore) lookup(identity, name string) (*model.Attribute, string, error) {
	nonce, err := as.nonceOf(identity, name)
	if err != nil {
		return nil, "", err
	}
	// The live record was written with the previous nonce value.
	lookupNonce := nonce
	if nonce > 0 {
		lookupNonce = nonce - 1
	}
	attributeKey, err := as.createAttributeCompositeKey(identity, attributeRecordID(identity, name, lookupNonce))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create attribute composite key for '%s': %w", identity, err)
	}
	recordBytes, err := as.Ctx.GetStub().GetState(attributeKey)
	if err != nil {
		return nil, "", fmt.Errorf("ledger error retrieving attribute '%s' for '%s': %w", name, identity, err)
	}
	if recordBytes == nil {
		return nil, attributeKey, nil
	}
	var record model.Attribute
	if err := json.Unmarshal(recordBytes, &record); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal attribute '%s' for '%s': %w", name, identity, err)
	}
	return &record, attributeKey, nil
}

// Get returns the live attribute record for a name, expired or not.
func (as *AttributeStore) Get(identity, name string) (*model.Attribute, error) {
	record, _, err := as.lookup(identity, name)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, regerrors.Newf(regerrors.CodeNotFound, "no attribute '%s' on identity '%s'", name, identity)
	}
	return record, nil
}

// Put writes the attribute record for a name. An existing record for the same
// name keeps its identifier and creation time and gets the new value and expiry;
// otherwise a fresh record is created and the per-name nonce advanced.
func (as *AttributeStore) Put(identity, name, value string, expiry, now uint64) error {
	existing, attributeKey, err := as.lookup(identity, name)
	if err != nil {
		return err
	}

	record := model.Attribute{
		ObjectType: attributeObjectType,
		Identity:   identity,
		Name:       name,
		Value:      value,
		Expiry:     expiry,
		Creation:   now,
	}
	if existing != nil {
		record.Creation = existing.Creation
		record.Nonce = existing.Nonce
	} else {
		nonce, nonceErr := as.nonceOf(identity, name)
		if nonceErr != nil {
			return nonceErr
		}
		next := nonce + 1
		if next < nonce {
			return regerrors.Newf(regerrors.CodeInternal, "attribute nonce overflow for '%s' on identity '%s'", name, identity)
		}
		record.Nonce = nonce
		attributeKey, err = as.createAttributeCompositeKey(identity, attributeRecordID(identity, name, nonce))
		if err != nil {
			return fmt.Errorf("failed to create attribute composite key for '%s': %w", identity, err)
		}
		if err := as.putNonce(identity, name, next); err != nil {
			return err
		}
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal attribute '%s' for '%s': %w", name, identity, err)
	}
	if err := as.Ctx.GetStub().PutState(attributeKey, recordBytes); err != nil {
		return fmt.Errorf("failed to save attribute '%s' for '%s': %w", name, identity, err)
	}
	attributeLogger.Debugf("Attribute '%s' on identity '%s' valid until %d (nonce %d)", name, identity, expiry, record.Nonce)
	return nil
}

// Revoke sets the expiry of the live record to the current logical time.
// The record is retained; its last known value stays queryable but invalid.
func (as *AttributeStore) Revoke(identity, name string, now uint64) error {
	record, attributeKey, err := as.lookup(identity, name)
	if err != nil {
		return err
	}
	if record == nil {
		return regerrors.Newf(regerrors.CodeNotFound, "no attribute '%s' on identity '%s'", name, identity)
	}
	record.Expiry = now
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal attribute '%s' for '%s': %w", name, identity, err)
	}
	if err := as.Ctx.GetStub().PutState(attributeKey, recordBytes); err != nil {
		return fmt.Errorf("failed to save attribute '%s' for '%s': %w", name, identity, err)
	}
	return nil
}

// Delete removes the live record entirely; later lookups behave as if the
// attribute never existed. The nonce survives so a re-add under the same name
// produces a different record identifier.
func (as *AttributeStore) Delete(identity, name string) error {
	record, attributeKey, err := as.lookup(identity, name)
	if err != nil {
		return err
	}
	if record == nil {
		return regerrors.Newf(regerrors.CodeNotFound, "no attribute '%s' on identity '%s'", name, identity)
	}
	if err := as.Ctx.GetStub().DelState(attributeKey); err != nil {
		return fmt.Errorf("failed to delete attribute '%s' for '%s': %w", name, identity, err)
	}
	return nil
}

// IsValid reports whether identity carries an unexpired attribute whose stored
// value equals the supplied one. Equality on the value is required so a forged
// payload under a matching name never validates. Pure predicate.
func (as *AttributeStore) IsValid(identity, name, value string, now uint64) (bool, error) {
	record, _, err := as.lookup(identity, name)
	if err != nil {
		return false, err
	}
	return record != nil && record.Value == value && record.Expiry > now, nil
}

// List returns every live attribute record of an identity, expired ones included.
func (as *AttributeStore) List(identity string) ([]model.Attribute, error) {
	resultsIterator, err := as.Ctx.GetStub().GetStateByPartialCompositeKey(attributeObjectType, []string{identity})
	if err != nil {
		return nil, fmt.Errorf("failed to get attributes iterator for '%s': %w", identity, err)
	}
	defer resultsIterator.Close()

	records := []model.Attribute{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			attributeLogger.Warningf("Failed to get next attribute record from iterator for '%s': %v. Skipping.", identity, iterErr)
			continue
		}
		var record model.Attribute
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			attributeLogger.Warningf("Failed to unmarshal attribute record for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
