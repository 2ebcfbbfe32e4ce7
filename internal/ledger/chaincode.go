package ledger

import (
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	ledgerclient "github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/resmgmt"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/pkg/errors"
)

// ChaincodeDefinition is a chaincode committed on a channel.
type ChaincodeDefinition struct {
	Name              string          `json:"name"`
	Version           string          `json:"version"`
	Sequence          int64           `json:"sequence"`
	EndorsementPlugin string          `json:"endorsement_plugin,omitempty"`
	ValidationPlugin  string          `json:"validation_plugin,omitempty"`
	InitRequired      bool            `json:"init_required"`
	Approvals         map[string]bool `json:"approvals,omitempty"`
}

// The admin queries run as the org admin user from the server config.

func (o *org) resMgmt() (*resmgmt.Client, error) {
	client, err := resmgmt.New(o.sdk.Context(fabsdk.WithUser(o.cfg.AdminUser), fabsdk.WithOrg(o.name)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create resource management client for org %s", o.name)
	}
	return client, nil
}

func (o *org) ledger(channel string) (*ledgerclient.Client, error) {
	client, err := ledgerclient.New(o.sdk.ChannelContext(channel, fabsdk.WithUser(o.cfg.AdminUser), fabsdk.WithOrg(o.name)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create ledger client for channel %s", channel)
	}
	return client, nil
}

func (o *org) ledgerTargets() []ledgerclient.RequestOption {
	if len(o.cfg.TargetPeers) == 0 {
		return nil
	}
	return []ledgerclient.RequestOption{ledgerclient.WithTargetEndpoints(o.cfg.TargetPeers...)}
}

// Channels lists the channels a peer has joined. An empty peer means the
// first configured target peer of the org.
func (n *Network) Channels(orgName, peer string) ([]string, error) {
	o, err := n.org(orgName)
	if err != nil {
		return nil, err
	}
	if peer == "" {
		if len(o.cfg.TargetPeers) == 0 {
			return nil, errors.Errorf("org %s has no target peers configured", o.name)
		}
		peer = o.cfg.TargetPeers[0]
	}

	client, err := o.resMgmt()
	if err != nil {
		return nil, err
	}

	resp, err := client.QueryChannels(resmgmt.WithTargetEndpoints(peer), resmgmt.WithRetry(retry.DefaultResMgmtOpts))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query channels of %s", peer)
	}
	channels := make([]string, 0, len(resp.Channels))
	for _, chInfo := range resp.Channels {
		channels = append(channels, chInfo.ChannelId)
	}
	return channels, nil
}

// CommittedChaincodes lists the chaincode definitions committed on a
// channel, or only the one named when name is not empty.
func (n *Network) CommittedChaincodes(orgName, channel, name string) ([]ChaincodeDefinition, error) {
	o, err := n.org(orgName)
	if err != nil {
		return nil, err
	}
	client, err := o.resMgmt()
	if err != nil {
		return nil, err
	}

	opts := []resmgmt.RequestOption{resmgmt.WithRetry(retry.DefaultResMgmtOpts)}
	if len(o.cfg.TargetPeers) > 0 {
		opts = append(opts, resmgmt.WithTargetEndpoints(o.cfg.TargetPeers...))
	}

	defs, err := client.LifecycleQueryCommittedCC(channel, resmgmt.LifecycleQueryCommittedCCRequest{Name: name}, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query committed chaincodes on %s", channel)
	}

	out := make([]ChaincodeDefinition, 0, len(defs))
	for _, def := range defs {
		out = append(out, ChaincodeDefinition{
			Name:              def.Name,
			Version:           def.Version,
			Sequence:          def.Sequence,
			EndorsementPlugin: def.EndorsementPlugin,
			ValidationPlugin:  def.ValidationPlugin,
			InitRequired:      def.InitRequired,
			Approvals:         def.Approvals,
		})
	}
	return out, nil
}

// ChainInfo returns the ledger height of a channel.
func (n *Network) ChainInfo(orgName, channel string) (*common.BlockchainInfo, error) {
	o, err := n.org(orgName)
	if err != nil {
		return nil, err
	}
	client, err := o.ledger(channel)
	if err != nil {
		return nil, err
	}

	resp, err := client.QueryInfo(o.ledgerTargets()...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query info of %s", channel)
	}
	return resp.BCI, nil
}

// Block returns a block by number.
func (n *Network) Block(orgName, channel string, num uint64) (*common.Block, error) {
	o, err := n.org(orgName)
	if err != nil {
		return nil, err
	}
	client, err := o.ledger(channel)
	if err != nil {
		return nil, err
	}

	block, err := client.QueryBlock(num, o.ledgerTargets()...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query block %d of %s", num, channel)
	}
	return block, nil
}

// Transaction returns a validated transaction by ID.
func (n *Network) Transaction(orgName, channel, txID string) (*pb.ProcessedTransaction, error) {
	o, err := n.org(orgName)
	if err != nil {
		return nil, err
	}
	client, err := o.ledger(channel)
	if err != nil {
		return nil, err
	}

	tx, err := client.QueryTransaction(fab.TransactionID(txID), o.ledgerTargets()...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query transaction %s on %s", txID, channel)
	}
	return tx, nil
}
