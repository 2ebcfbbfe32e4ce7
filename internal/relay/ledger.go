package relay

import (
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/mastermeng/fabricrest/internal/blockdecode"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/pkg/errors"
)

// Channels lists the channels joined by peer, or by the first target peer
// of the user's org.
func (s *Service) Channels(user ledger.User, peer string) ([]string, error) {
	var channels []string
	err := s.observe("channels", func() error {
		var err error
		channels, err = s.net.Channels(user.OrgName, peer)
		return err
	})
	return channels, err
}

// ChainInfo returns the ledger height of a channel.
func (s *Service) ChainInfo(user ledger.User, channel string) (*blockdecode.ChainInfo, error) {
	if err := required([2]string{"channelName", channel}); err != nil {
		return nil, err
	}

	var info *common.BlockchainInfo
	err := s.observe("chain_info", func() error {
		var err error
		info, err = s.net.ChainInfo(user.OrgName, channel)
		return err
	})
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.Errorf("no chain info returned for %s", channel)
	}
	return blockdecode.DecodeChainInfo(info), nil
}

// Block returns a decoded block by number.
func (s *Service) Block(user ledger.User, channel string, num uint64) (*blockdecode.Block, error) {
	if err := required([2]string{"channelName", channel}); err != nil {
		return nil, err
	}

	var block *common.Block
	err := s.observe("block", func() error {
		var err error
		block, err = s.net.Block(user.OrgName, channel, num)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blockdecode.DecodeBlock(block)
}

// Transaction returns a decoded transaction by ID.
func (s *Service) Transaction(user ledger.User, channel, txID string) (*blockdecode.TransactionDetail, error) {
	if err := required(
		[2]string{"channelName", channel},
		[2]string{"txid", txID},
	); err != nil {
		return nil, err
	}

	var tx *pb.ProcessedTransaction
	err := s.observe("transaction", func() error {
		var err error
		tx, err = s.net.Transaction(user.OrgName, channel, txID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blockdecode.DecodeProcessedTransaction(tx)
}
