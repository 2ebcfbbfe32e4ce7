package relay

import (
	"testing"

	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannels(t *testing.T) {
	net := &mockNetwork{}
	net.On("Channels", "Org1", "").Return([]string{"mychannel"}, nil)

	channels, err := newService(t, net).Channels(alice, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mychannel"}, channels)
}

func TestChainInfo(t *testing.T) {
	net := &mockNetwork{}
	net.On("ChainInfo", "Org1", "mychannel").Return(&common.BlockchainInfo{Height: 7, PreviousBlockHash: []byte{0xab}}, nil)
	net.On("ChainInfo", "Org1", "empty").Return(nil, nil)
	s := newService(t, net)

	info, err := s.ChainInfo(alice, "mychannel")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), info.Height)
	assert.Equal(t, "ab", info.PreviousBlockHash)

	_, err = s.ChainInfo(alice, "empty")
	assert.Error(t, err)

	_, err = s.ChainInfo(alice, "")
	assert.Equal(t, ErrMissingField, errors.Cause(err))
}

func TestBlock(t *testing.T) {
	net := &mockNetwork{}
	net.On("Block", "Org1", "mychannel", uint64(2)).Return(&common.Block{Header: &common.BlockHeader{Number: 2}}, nil)
	net.On("Block", "Org1", "mychannel", uint64(99)).Return(nil, errors.New("entry not found in index"))
	s := newService(t, net)

	block, err := s.Block(alice, "mychannel", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), block.Number)
	assert.Equal(t, 0, block.TxCount)

	_, err = s.Block(alice, "mychannel", 99)
	assert.EqualError(t, err, "entry not found in index")
}

func TestTransactionRequiresID(t *testing.T) {
	_, err := newService(t, &mockNetwork{}).Transaction(alice, "mychannel", "")
	assert.Equal(t, ErrMissingField, errors.Cause(err))
	assert.Contains(t, err.Error(), "'txid'")
}
