package ledger

import (
	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/pkg/errors"
)

// ErrIdentityNotFound is returned when a user has no wallet identity.
var ErrIdentityNotFound = errors.New("identity not found in wallet")

// TxOptions are the per-transaction options beyond positional arguments.
type TxOptions struct {
	Transient map[string][]byte
	Peers     []string
}

func (o TxOptions) empty() bool {
	return len(o.Transient) == 0 && len(o.Peers) == 0
}

// Contract evaluates and submits transactions against one chaincode.
type Contract interface {
	Evaluate(fcn string, opts TxOptions, args ...string) ([]byte, error)
	Submit(fcn string, opts TxOptions, args ...string) ([]byte, error)
}

type gatewayContract struct {
	contract *gateway.Contract
}

// Connect opens a gateway as the user and resolves the chaincode on the
// channel. The returned func closes the gateway.
func (n *Network) Connect(user User, channel, chaincode string) (Contract, func(), error) {
	o, err := n.org(user.OrgName)
	if err != nil {
		return nil, nil, err
	}
	wallet, err := o.wallet()
	if err != nil {
		return nil, nil, err
	}
	if !wallet.Exists(user.Username) {
		return nil, nil, errors.Wrapf(ErrIdentityNotFound, "%s", user.Username)
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(fabconfig.FromFile(o.cfg.ConfigPath)),
		gateway.WithIdentity(wallet, user.Username),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to gateway")
	}

	network, err := gw.GetNetwork(channel)
	if err != nil {
		gw.Close()
		return nil, nil, errors.Wrapf(err, "failed to get network %s", channel)
	}

	n.logger.Debugf("connected %s@%s to %s/%s", user.Username, o.name, channel, chaincode)
	return &gatewayContract{contract: network.GetContract(chaincode)}, gw.Close, nil
}

func (c *gatewayContract) transaction(fcn string, opts TxOptions) (*gateway.Transaction, error) {
	var options []gateway.TransactionOption
	if len(opts.Transient) > 0 {
		options = append(options, gateway.WithTransient(opts.Transient))
	}
	if len(opts.Peers) > 0 {
		options = append(options, gateway.WithEndorsingPeers(opts.Peers...))
	}
	return c.contract.CreateTransaction(fcn, options...)
}

func (c *gatewayContract) Evaluate(fcn string, opts TxOptions, args ...string) ([]byte, error) {
	if opts.empty() {
		return c.contract.EvaluateTransaction(fcn, args...)
	}
	txn, err := c.transaction(fcn, opts)
	if err != nil {
		return nil, err
	}
	return txn.Evaluate(args...)
}

func (c *gatewayContract) Submit(fcn string, opts TxOptions, args ...string) ([]byte, error) {
	if opts.empty() {
		return c.contract.SubmitTransaction(fcn, args...)
	}
	txn, err := c.transaction(fcn, opts)
	if err != nil {
		return nil, err
	}
	return txn.Submit(args...)
}
