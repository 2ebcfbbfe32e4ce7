package relay

import (
	"github.com/mastermeng/fabricrest/internal/blockdecode"
	"github.com/mastermeng/fabricrest/internal/dispatch"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/pkg/errors"
)

const defaultSystemChaincode = "qscc"

// InvokeRequest submits a transaction.
type InvokeRequest struct {
	ChannelName   string
	ChaincodeName string
	Fcn           string
	Args          []string
	Peers         []string
	Transient     map[string][]byte
}

// QueryRequest evaluates a transaction or a system query.
type QueryRequest struct {
	ChannelName   string
	ChaincodeName string
	Fcn           string
	Args          []string
	Peer          string
}

func (s *Service) connect(user ledger.User, channel, chaincode string) (ledger.Contract, func(), error) {
	if err := s.ensureIdentity(user); err != nil {
		return nil, nil, err
	}
	var (
		contract ledger.Contract
		closeFn  func()
	)
	err := s.observe("connect", func() error {
		var err error
		contract, closeFn, err = s.net.Connect(user, channel, chaincode)
		return err
	})
	return contract, closeFn, err
}

// Invoke routes the arguments of fcn and submits the transaction as user.
func (s *Service) Invoke(user ledger.User, req InvokeRequest) (interface{}, error) {
	if err := required(
		[2]string{"channelName", req.ChannelName},
		[2]string{"chaincodeName", req.ChaincodeName},
		[2]string{"fcn", req.Fcn},
	); err != nil {
		return nil, err
	}

	call, err := s.table.Route(req.Fcn, req.Args, req.Transient)
	if err != nil {
		return nil, err
	}

	contract, closeFn, err := s.connect(user, req.ChannelName, req.ChaincodeName)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var payload []byte
	err = s.observe("submit", func() error {
		var err error
		payload, err = contract.Submit(call.Fcn, ledger.TxOptions{Transient: call.Transient, Peers: req.Peers}, call.Args...)
		return err
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to submit %s", call.Fcn)
	}

	s.logger.Infof("transaction %s on %s/%s has been submitted by %s", call.Fcn, req.ChannelName, req.ChaincodeName, user.Username)
	return payloadResult(payload), nil
}

// Query routes the arguments of fcn and evaluates the transaction as user.
func (s *Service) Query(user ledger.User, req QueryRequest) (interface{}, error) {
	if err := required(
		[2]string{"channelName", req.ChannelName},
		[2]string{"chaincodeName", req.ChaincodeName},
		[2]string{"fcn", req.Fcn},
	); err != nil {
		return nil, err
	}

	call, err := s.table.Route(req.Fcn, req.Args, nil)
	if err != nil {
		return nil, err
	}

	contract, closeFn, err := s.connect(user, req.ChannelName, req.ChaincodeName)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var opts ledger.TxOptions
	if req.Peer != "" {
		opts.Peers = []string{req.Peer}
	}

	var payload []byte
	err = s.observe("evaluate", func() error {
		var err error
		payload, err = contract.Evaluate(call.Fcn, opts, call.Args...)
		return err
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to evaluate %s", call.Fcn)
	}

	s.logger.Debugf("transaction %s on %s/%s has been evaluated", call.Fcn, req.ChannelName, req.ChaincodeName)
	return payloadResult(payload), nil
}

// QuerySystem answers ledger metadata queries. Block and transaction
// lookups go through the query system chaincode as user; chaincode
// listings come from the committed chaincode definitions.
func (s *Service) QuerySystem(user ledger.User, req QueryRequest) (interface{}, error) {
	if err := required(
		[2]string{"channelName", req.ChannelName},
		[2]string{"fcn", req.Fcn},
	); err != nil {
		return nil, err
	}

	call, err := dispatch.RouteSystem(req.ChannelName, req.Fcn, req.Args)
	if err != nil {
		return nil, err
	}

	if dispatch.IsLifecycle(call.Fcn) {
		return s.committedChaincodes(user, req.ChannelName, call)
	}

	// Block and transaction lookups always target qscc; the chaincode in
	// the route only names the path.
	if req.ChaincodeName != "" && req.ChaincodeName != defaultSystemChaincode {
		s.logger.Debugf("system query %s on %s routed to %s", call.Fcn, req.ChaincodeName, defaultSystemChaincode)
	}

	contract, closeFn, err := s.connect(user, req.ChannelName, defaultSystemChaincode)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var payload []byte
	err = s.observe("evaluate", func() error {
		var err error
		payload, err = contract.Evaluate(call.Fcn, ledger.TxOptions{}, call.Args...)
		return err
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to evaluate %s", call.Fcn)
	}

	switch call.Fcn {
	case dispatch.GetChainInfo:
		return blockdecode.DecodeChainInfoBytes(payload)
	case dispatch.GetTransactionByID:
		return blockdecode.DecodeProcessedTransactionBytes(payload)
	default:
		return blockdecode.DecodeBlockBytes(payload)
	}
}

func (s *Service) committedChaincodes(user ledger.User, channel string, call dispatch.Call) (interface{}, error) {
	name := ""
	if call.Fcn == dispatch.GetChaincodeData {
		name = call.Args[1]
	}

	var defs []ledger.ChaincodeDefinition
	err := s.observe("lifecycle", func() error {
		var err error
		defs, err = s.net.CommittedChaincodes(user.OrgName, channel, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	if name == "" {
		return defs, nil
	}
	if len(defs) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "chaincode %s on %s", name, channel)
	}
	return defs[0], nil
}
