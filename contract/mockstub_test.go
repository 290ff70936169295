package contract

import (
	"crypto/x509"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// mockStub is an in-memory ledger implementing the subset of the stub the
// registry touches. The embedded interface panics on anything else, which is
// exactly what a test should do for an unexpected ledger call.
type mockStub struct {
	shim.ChaincodeStubInterface
	state  map[string][]byte
	events map[string][]byte
	txTime uint64
}

func newMockStub(txTime uint64) *mockStub {
	return &mockStub{
		state:  make(map[string][]byte),
		events: make(map[string][]byte),
		txTime: txTime,
	}
}

// setTime advances the logical clock for subsequent invocations over the same
// ledger state.
func (s *mockStub) setTime(txTime uint64) { s.txTime = txTime }

func (s *mockStub) GetState(key string) ([]byte, error) {
	return s.state[key], nil
}

func (s *mockStub) PutState(key string, value []byte) error {
	if key == "" {
		return errors.New("key must not be empty")
	}
	s.state[key] = value
	return nil
}

func (s *mockStub) DelState(key string) error {
	delete(s.state, key)
	return nil
}

// CreateCompositeKey mirrors the shim's null-separated key layout.
func (s *mockStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := "\x00" + objectType + "\x00"
	for _, attr := range attributes {
		key += attr + "\x00"
	}
	return key, nil
}

func (s *mockStub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	prefix, _ := s.CreateCompositeKey(objectType, keys)
	matched := []string{}
	for key := range s.state {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	kvs := make([]*queryresult.KV, 0, len(matched))
	for _, key := range matched {
		kvs = append(kvs, &queryresult.KV{Key: key, Value: s.state[key]})
	}
	return &stateIterator{kvs: kvs}, nil
}

func (s *mockStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(time.Unix(int64(s.txTime), 0)), nil
}

func (s *mockStub) SetEvent(name string, payload []byte) error {
	s.events[name] = payload
	return nil
}

type stateIterator struct {
	kvs []*queryresult.KV
	idx int
}

func (it *stateIterator) HasNext() bool { return it.idx < len(it.kvs) }

func (it *stateIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("no more items")
	}
	kv := it.kvs[it.idx]
	it.idx++
	return kv, nil
}

func (it *stateIterator) Close() error { return nil }

// mockClientIdentity presents a fixed account identifier as the caller.
type mockClientIdentity struct {
	id string
}

func (ci *mockClientIdentity) GetID() (string, error)    { return ci.id, nil }
func (ci *mockClientIdentity) GetMSPID() (string, error) { return "Org1MSP", nil }
func (ci *mockClientIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}
func (ci *mockClientIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (ci *mockClientIdentity) AssertAttributeValue(string, string) error { return nil }

// newTestContext binds a shared ledger stub to a caller account.
func newTestContext(stub *mockStub, caller string) *contractapi.TransactionContext {
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(stub)
	ctx.SetClientIdentity(&mockClientIdentity{id: caller})
	return ctx
}
