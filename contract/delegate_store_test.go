package contract

import (
	"strings"
	"testing"

	regerrors "didregistry/pkg/errors"

	"github.com/stretchr/testify/require"
)

func TestAddDelegateComputesExpiry(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", 100))

	record, err := rc.GetDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.NoError(t, err)
	require.Equal(t, uint64(110), record.Expiry)
	require.Contains(t, stub.events, "DelegateAdded")
}

func TestAddDelegateRejectsBadDuration(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	err := rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", 0)
	require.Equal(t, regerrors.CodeInvalidDuration, regerrors.CodeOf(err))

	err = rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", ^uint64(0))
	require.Equal(t, regerrors.CodeInvalidDuration, regerrors.CodeOf(err))
}

func TestAddDelegateOverwritesSameTriple(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", 100))
	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", 5))

	record, err := rc.GetDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.NoError(t, err)
	require.Equal(t, uint64(15), record.Expiry)
}

func TestIsValidDelegateExpiry(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", 100))

	valid, err := rc.IsValidDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.NoError(t, err)
	require.True(t, valid)

	stub.setTime(109)
	valid, err = rc.IsValidDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.NoError(t, err)
	require.True(t, valid)

	// Expiry is exclusive: the grant is dead at its expiry time.
	stub.setTime(110)
	valid, err = rc.IsValidDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.NoError(t, err)
	require.False(t, valid)
}

func TestOwnerIsAlwaysValidDelegate(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	valid, err := rc.IsValidDelegate(newTestContext(stub, "Acc1"), "Acc1", "some-arbitrary-capability", "Acc1")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestRevokeDelegateKeepsRow(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", 100))

	stub.setTime(20)
	require.NoError(t, rc.RevokeDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2"))

	valid, err := rc.IsValidDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.NoError(t, err)
	require.False(t, valid)

	// The row still exists with expiry frozen at revocation time.
	record, err := rc.GetDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.NoError(t, err)
	require.Equal(t, uint64(20), record.Expiry)
	require.Contains(t, stub.events, "DelegateRevoked")
}

func TestRevokeDelegateNotFound(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	err := rc.RevokeDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2")
	require.Equal(t, regerrors.CodeNotFound, regerrors.CodeOf(err))
}

func TestManageDelegatesCanBeDelegated(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageDelegates, "Acc2", 100))

	// Acc2 may now manage delegates on Acc1's identity, but not attributes.
	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc2"), "Acc1", CapabilityManageAttributes, "Acc3", 100))
	err := rc.AddAttribute(newTestContext(stub, "Acc2"), "Acc1", "email", "a@b.com", 100)
	require.Equal(t, regerrors.CodeUnauthorizedCaller, regerrors.CodeOf(err))
}

func TestDelegateTypeBounds(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	err := rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", "", "Acc2", 100)
	require.Equal(t, regerrors.CodeInvalidArgument, regerrors.CodeOf(err))
	err = rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", strings.Repeat("x", 65), "Acc2", 100)
	require.Equal(t, regerrors.CodeInvalidArgument, regerrors.CodeOf(err))
}

func TestListDelegates(t *testing.T) {
	stub := newMockStub(10)
	rc := &RegistryContract{}

	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageAttributes, "Acc2", 100))
	require.NoError(t, rc.AddDelegate(newTestContext(stub, "Acc1"), "Acc1", CapabilityManageDelegates, "Acc3", 50))

	records, err := rc.ListDelegates(newTestContext(stub, "Acc1"), "Acc1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	records, err = rc.ListDelegates(newTestContext(stub, "Acc1"), "AccX")
	require.NoError(t, err)
	require.Empty(t, records)
}
