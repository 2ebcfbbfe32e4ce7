package relay

import (
	"encoding/json"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/mastermeng/fabricrest/internal/blockdecode"
	"github.com/mastermeng/fabricrest/internal/dispatch"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var alice = ledger.User{Username: "alice", OrgName: "Org1"}

func newService(t *testing.T, net Network) *Service {
	s, err := New(net, dispatch.DefaultTable(), stubTokens{}, zap.NewNop().Sugar(), prometheus.NewRegistry())
	require.NoError(t, err)
	return s
}

func TestNewRegistersMetricsOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(&mockNetwork{}, dispatch.DefaultTable(), stubTokens{}, zap.NewNop().Sugar(), reg)
	require.NoError(t, err)
	_, err = New(&mockNetwork{}, dispatch.DefaultTable(), stubTokens{}, zap.NewNop().Sugar(), reg)
	assert.Error(t, err)
}

func connected(net *mockNetwork, contract *mockContract, channel, chaincode string) *bool {
	closed := new(bool)
	net.On("Exists", alice).Return(true, nil)
	net.On("Connect", alice, channel, chaincode).Return(contract, func() { *closed = true }, nil)
	return closed
}

func TestInvokeCreateCar(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	closed := connected(net, contract, "mychannel", "fabcar")
	args := []string{"CAR1", "Toyota", "Prius", "Blue", "Alice"}
	contract.On("Submit", "createCar", ledger.TxOptions{}, args).Return([]byte(`{"ok":true}`), nil)

	result, err := newService(t, net).Invoke(alice, InvokeRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "createCar", Args: args,
	})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{"ok":true}`), result)
	assert.True(t, *closed)
	contract.AssertExpectations(t)
}

func TestInvokeTruncatesToArity(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	connected(net, contract, "mychannel", "fabcar")
	opts := ledger.TxOptions{Peers: []string{"peer0.org1.example.com"}}
	contract.On("Submit", "changeCarOwner", opts, []string{"CAR1", "Bob"}).Return([]byte("done"), nil)

	result, err := newService(t, net).Invoke(alice, InvokeRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "changeCarOwner",
		Args: []string{"CAR1", "Bob", "ignored"}, Peers: []string{"peer0.org1.example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestInvokeTransient(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	connected(net, contract, "mychannel", "fabcar")
	transient := map[string][]byte{"car": []byte(`{"make":"Toyota"}`)}
	contract.On("Submit", "createPrivateCar", ledger.TxOptions{Transient: transient}, []string{}).Return([]byte(nil), nil)

	result, err := newService(t, net).Invoke(alice, InvokeRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "createPrivateCar", Transient: transient,
	})
	require.NoError(t, err)
	assert.Equal(t, "", result)
}

func TestInvokeValidation(t *testing.T) {
	net := &mockNetwork{}
	s := newService(t, net)

	_, err := s.Invoke(alice, InvokeRequest{ChaincodeName: "fabcar", Fcn: "createCar"})
	assert.Equal(t, ErrMissingField, errors.Cause(err))
	assert.Contains(t, err.Error(), "'channelName'")

	_, err = s.Invoke(alice, InvokeRequest{ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "createCar", Args: []string{"CAR1"}})
	assert.Equal(t, dispatch.ErrTooFewArgs, errors.Cause(err))

	_, err = s.Invoke(alice, InvokeRequest{ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "createPrivateCar"})
	assert.Equal(t, dispatch.ErrTransientRequired, errors.Cause(err))

	net.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvokeSubmitFailure(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	closed := connected(net, contract, "mychannel", "fabcar")
	contract.On("Submit", "transfer", ledger.TxOptions{}, []string{"a"}).Return(nil, errors.New("endorsement failure"))

	_, err := newService(t, net).Invoke(alice, InvokeRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "transfer", Args: []string{"a"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endorsement failure")
	assert.True(t, *closed)
}

func TestQueryEnrollsMissingIdentity(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	net.On("Exists", alice).Return(false, nil).Once()
	net.On("Enroll", alice).Return(nil).Once()
	net.On("Exists", alice).Return(true, nil).Once()
	net.On("Connect", alice, "mychannel", "fabcar").Return(contract, func() {}, nil)
	contract.On("Evaluate", "readPrivateCar", ledger.TxOptions{}, []string{"collectionCars", "CAR1"}).Return([]byte(`[1,2]`), nil)

	result, err := newService(t, net).Query(alice, QueryRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "readPrivateCar",
		Args: []string{"collectionCars", "CAR1"},
	})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[1,2]`), result)
	net.AssertExpectations(t)
}

func TestQueryRegistrationFailed(t *testing.T) {
	net := &mockNetwork{}
	net.On("Exists", alice).Return(false, nil)
	net.On("Enroll", alice).Return(nil)

	_, err := newService(t, net).Query(alice, QueryRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "queryCar", Args: []string{"CAR1"},
	})
	assert.Equal(t, ErrRegistrationFailed, errors.Cause(err))
	net.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything, mock.Anything)
}

func TestQueryEnrollFailure(t *testing.T) {
	net := &mockNetwork{}
	net.On("Exists", alice).Return(false, nil)
	net.On("Enroll", alice).Return(errors.New("ca unreachable"))

	_, err := newService(t, net).Query(alice, QueryRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "queryCar", Args: []string{"CAR1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ca unreachable")
}

func TestQueryNullPayload(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	connected(net, contract, "mychannel", "fabcar")
	contract.On("Evaluate", "queryCarsByOwner", ledger.TxOptions{}, []string{"Nobody"}).Return([]byte("null"), nil)

	result, err := newService(t, net).Query(alice, QueryRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: "queryCarsByOwner", Args: []string{"Nobody"},
	})
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "", result)
}

func TestQueryPeerAndVariadic(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	connected(net, contract, "mychannel", "basic")
	opts := ledger.TxOptions{Peers: []string{"peer1.org1.example.com"}}
	contract.On("Evaluate", "GetAllAssets", opts, []string{"a", "b", "c"}).Return([]byte("plain text"), nil)

	result, err := newService(t, net).Query(alice, QueryRequest{
		ChannelName: "mychannel", ChaincodeName: "basic", Fcn: "GetAllAssets",
		Args: []string{"a", "b", "c"}, Peer: "peer1.org1.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "plain text", result)
}

func TestQuerySystemChainInfo(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	connected(net, contract, "mychannel", "qscc")
	info, err := proto.Marshal(&common.BlockchainInfo{Height: 5, CurrentBlockHash: []byte{0x01}})
	require.NoError(t, err)
	contract.On("Evaluate", dispatch.GetChainInfo, ledger.TxOptions{}, []string{"mychannel"}).Return(info, nil)

	result, err := newService(t, net).QuerySystem(alice, QueryRequest{ChannelName: "mychannel", Fcn: dispatch.GetChainInfo})
	require.NoError(t, err)
	assert.Equal(t, &blockdecode.ChainInfo{Height: 5, CurrentBlockHash: "01", PreviousBlockHash: ""}, result)
}

func TestQuerySystemBlock(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	connected(net, contract, "mychannel", "qscc")
	block, err := proto.Marshal(&common.Block{Header: &common.BlockHeader{Number: 3}, Data: &common.BlockData{}})
	require.NoError(t, err)
	contract.On("Evaluate", dispatch.GetBlockByNumber, ledger.TxOptions{}, []string{"mychannel", "3"}).Return(block, nil)

	result, err := newService(t, net).QuerySystem(alice, QueryRequest{
		ChannelName: "mychannel", ChaincodeName: "qscc", Fcn: dispatch.GetBlockByNumber, Args: []string{"mychannel", "3"},
	})
	require.NoError(t, err)
	decoded, ok := result.(*blockdecode.Block)
	require.True(t, ok)
	assert.Equal(t, uint64(3), decoded.Number)
}

func TestQuerySystemIgnoresRouteChaincode(t *testing.T) {
	net, contract := &mockNetwork{}, &mockContract{}
	connected(net, contract, "mychannel", "qscc")
	block, err := proto.Marshal(&common.Block{Header: &common.BlockHeader{Number: 7}, Data: &common.BlockData{}})
	require.NoError(t, err)
	contract.On("Evaluate", dispatch.GetBlockByTxID, ledger.TxOptions{}, []string{"mychannel", "abc"}).Return(block, nil)

	result, err := newService(t, net).QuerySystem(alice, QueryRequest{
		ChannelName: "mychannel", ChaincodeName: "fabcar", Fcn: dispatch.GetBlockByTxID, Args: []string{"mychannel", "abc"},
	})
	require.NoError(t, err)
	decoded, ok := result.(*blockdecode.Block)
	require.True(t, ok)
	assert.Equal(t, uint64(7), decoded.Number)
	net.AssertExpectations(t)
}

func TestQuerySystemLifecycle(t *testing.T) {
	net := &mockNetwork{}
	defs := []ledger.ChaincodeDefinition{{Name: "fabcar", Version: "1", Sequence: 1}}
	net.On("CommittedChaincodes", "Org1", "mychannel", "").Return(defs, nil)
	net.On("CommittedChaincodes", "Org1", "mychannel", "fabcar").Return(defs, nil)
	net.On("CommittedChaincodes", "Org1", "mychannel", "missing").Return([]ledger.ChaincodeDefinition{}, nil)
	s := newService(t, net)

	result, err := s.QuerySystem(alice, QueryRequest{ChannelName: "mychannel", Fcn: dispatch.GetChaincodes})
	require.NoError(t, err)
	assert.Equal(t, defs, result)

	result, err = s.QuerySystem(alice, QueryRequest{ChannelName: "mychannel", Fcn: dispatch.GetChaincodeData, Args: []string{"fabcar"}})
	require.NoError(t, err)
	assert.Equal(t, defs[0], result)

	_, err = s.QuerySystem(alice, QueryRequest{ChannelName: "mychannel", Fcn: dispatch.GetChaincodeData, Args: []string{"missing"}})
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	net.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuerySystemUnknownFunction(t *testing.T) {
	_, err := newService(t, &mockNetwork{}).QuerySystem(alice, QueryRequest{ChannelName: "mychannel", Fcn: "DropLedger"})
	assert.Equal(t, dispatch.ErrUnknownSystemFunction, errors.Cause(err))
}

func TestPayloadResult(t *testing.T) {
	assert.Equal(t, "", payloadResult(nil))
	assert.Equal(t, "", payloadResult([]byte("null")))
	assert.Equal(t, "", payloadResult([]byte(" null\n")))
	assert.Equal(t, json.RawMessage(`[]`), payloadResult([]byte(`[]`)))
	assert.Equal(t, json.RawMessage(`"quoted"`), payloadResult([]byte(`"quoted"`)))
	assert.Equal(t, "not json", payloadResult([]byte("not json")))
}
