package relay

import (
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/stretchr/testify/mock"
)

type mockNetwork struct {
	mock.Mock
}

func (m *mockNetwork) Exists(user ledger.User) (bool, error) {
	args := m.Called(user)
	return args.Bool(0), args.Error(1)
}

func (m *mockNetwork) Enroll(user ledger.User) error {
	return m.Called(user).Error(0)
}

func (m *mockNetwork) Connect(user ledger.User, channel, chaincode string) (ledger.Contract, func(), error) {
	args := m.Called(user, channel, chaincode)
	contract, _ := args.Get(0).(ledger.Contract)
	closeFn, _ := args.Get(1).(func())
	return contract, closeFn, args.Error(2)
}

func (m *mockNetwork) Channels(orgName, peer string) ([]string, error) {
	args := m.Called(orgName, peer)
	channels, _ := args.Get(0).([]string)
	return channels, args.Error(1)
}

func (m *mockNetwork) CommittedChaincodes(orgName, channel, name string) ([]ledger.ChaincodeDefinition, error) {
	args := m.Called(orgName, channel, name)
	defs, _ := args.Get(0).([]ledger.ChaincodeDefinition)
	return defs, args.Error(1)
}

func (m *mockNetwork) ChainInfo(orgName, channel string) (*common.BlockchainInfo, error) {
	args := m.Called(orgName, channel)
	info, _ := args.Get(0).(*common.BlockchainInfo)
	return info, args.Error(1)
}

func (m *mockNetwork) Block(orgName, channel string, num uint64) (*common.Block, error) {
	args := m.Called(orgName, channel, num)
	block, _ := args.Get(0).(*common.Block)
	return block, args.Error(1)
}

func (m *mockNetwork) Transaction(orgName, channel, txID string) (*pb.ProcessedTransaction, error) {
	args := m.Called(orgName, channel, txID)
	tx, _ := args.Get(0).(*pb.ProcessedTransaction)
	return tx, args.Error(1)
}

type mockContract struct {
	mock.Mock
}

func (m *mockContract) Evaluate(fcn string, opts ledger.TxOptions, args ...string) ([]byte, error) {
	ret := m.Called(fcn, opts, args)
	payload, _ := ret.Get(0).([]byte)
	return payload, ret.Error(1)
}

func (m *mockContract) Submit(fcn string, opts ledger.TxOptions, args ...string) ([]byte, error) {
	ret := m.Called(fcn, opts, args)
	payload, _ := ret.Get(0).([]byte)
	return payload, ret.Error(1)
}

type stubTokens struct {
	err error
}

func (s stubTokens) Issue(user ledger.User) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-" + user.Username, nil
}
