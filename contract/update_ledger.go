package contract

import (
	"encoding/json"
	"fmt"

	"didregistry/model"
	regerrors "didregistry/pkg/errors"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var updateLogger = flogging.MustGetLogger("didregistry.updateledger")

// UpdateLedger tracks, per identity, the last off-chain-signed update that was
// applied. It exists solely for replay protection: an already-applied signed
// payload would verify forever, so its asserted time must strictly advance.
type UpdateLedger struct {
	Ctx contractapi.TransactionContextInterface
}

// NewUpdateLedger creates a new instance of UpdateLedger.
func NewUpdateLedger(ctx contractapi.TransactionContextInterface) *UpdateLedger {
	return &UpdateLedger{Ctx: ctx}
}

func (ul *UpdateLedger) createMarkerCompositeKey(identity string) (string, error) {
	return ul.Ctx.GetStub().CreateCompositeKey(updateMarkerObjectType, []string{identity})
}

// LastUpdate returns the update marker for an identity, or nil if no
// off-chain update was ever applied.
func (ul *UpdateLedger) LastUpdate(identity string) (*model.UpdateMarker, error) {
	markerKey, err := ul.createMarkerCompositeKey(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create update marker key for '%s': %w", identity, err)
	}
	markerBytes, err := ul.Ctx.GetStub().GetState(markerKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving update marker for '%s': %w", identity, err)
	}
	if markerBytes == nil {
		return nil, nil
	}
	var marker model.UpdateMarker
	if err := json.Unmarshal(markerBytes, &marker); err != nil {
		return nil, fmt.Errorf("failed to unmarshal update marker for '%s': %w", identity, err)
	}
	return &marker, nil
}

// RecordUpdate writes the update marker for an identity. The recorded time must
// strictly exceed the previously recorded one; the first update always succeeds.
func (ul *UpdateLedger) RecordUpdate(identity, account string, time uint64, fingerprint string) error {
	previous, err := ul.LastUpdate(identity)
	if err != nil {
		return err
	}
	if previous != nil && time <= previous.Time {
		return regerrors.Newf(regerrors.CodeNonMonotonicUpdate,
			"update time %d does not advance past recorded time %d for identity '%s'", time, previous.Time, identity)
	}

	marker := model.UpdateMarker{
		ObjectType:  updateMarkerObjectType,
		Identity:    identity,
		UpdatedBy:   account,
		Time:        time,
		Fingerprint: fingerprint,
	}
	markerBytes, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("failed to marshal update marker for '%s': %w", identity, err)
	}
	markerKey, err := ul.createMarkerCompositeKey(identity)
	if err != nil {
		return fmt.Errorf("failed to create update marker key for '%s': %w", identity, err)
	}
	if err := ul.Ctx.GetStub().PutState(markerKey, markerBytes); err != nil {
		return fmt.Errorf("failed to save update marker for '%s': %w", identity, err)
	}
	updateLogger.Debugf("Update marker for identity '%s' advanced to %d by '%s'", identity, time, account)
	return nil
}
