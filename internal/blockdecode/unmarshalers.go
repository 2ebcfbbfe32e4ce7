package blockdecode

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-protos-go/msp"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// the unmarshalers return a non-nil pointer whenever the error is nil

func unmarshalBlock(encoded []byte) (*common.Block, error) {
	block := &common.Block{}
	err := proto.Unmarshal(encoded, block)
	return block, errors.Wrap(err, "error unmarshalling Block")
}

func unmarshalEnvelope(encoded []byte) (*common.Envelope, error) {
	env := &common.Envelope{}
	err := proto.Unmarshal(encoded, env)
	return env, errors.Wrap(err, "error unmarshalling Envelope")
}

func unmarshalPayload(encoded []byte) (*common.Payload, error) {
	payload := &common.Payload{}
	err := proto.Unmarshal(encoded, payload)
	return payload, errors.Wrap(err, "error unmarshalling Payload")
}

func unmarshalChannelHeader(encoded []byte) (*common.ChannelHeader, error) {
	chdr := &common.ChannelHeader{}
	err := proto.Unmarshal(encoded, chdr)
	return chdr, errors.Wrap(err, "error unmarshalling ChannelHeader")
}

func unmarshalSignatureHeader(encoded []byte) (*common.SignatureHeader, error) {
	shdr := &common.SignatureHeader{}
	err := proto.Unmarshal(encoded, shdr)
	return shdr, errors.Wrap(err, "error unmarshalling SignatureHeader")
}

func unmarshalSerializedIdentity(encoded []byte) (*msp.SerializedIdentity, error) {
	sid := &msp.SerializedIdentity{}
	err := proto.Unmarshal(encoded, sid)
	return sid, errors.Wrap(err, "error unmarshalling SerializedIdentity")
}

func unmarshalChaincodeHeaderExtension(encoded []byte) (*peer.ChaincodeHeaderExtension, error) {
	ext := &peer.ChaincodeHeaderExtension{}
	err := proto.Unmarshal(encoded, ext)
	return ext, errors.Wrap(err, "error unmarshalling ChaincodeHeaderExtension")
}

func unmarshalTransaction(encoded []byte) (*peer.Transaction, error) {
	tx := &peer.Transaction{}
	err := proto.Unmarshal(encoded, tx)
	return tx, errors.Wrap(err, "error unmarshalling Transaction")
}

func unmarshalChaincodeActionPayload(encoded []byte) (*peer.ChaincodeActionPayload, error) {
	ccap := &peer.ChaincodeActionPayload{}
	err := proto.Unmarshal(encoded, ccap)
	return ccap, errors.Wrap(err, "error unmarshalling ChaincodeActionPayload")
}

func unmarshalChaincodeProposalPayload(encoded []byte) (*peer.ChaincodeProposalPayload, error) {
	cpp := &peer.ChaincodeProposalPayload{}
	err := proto.Unmarshal(encoded, cpp)
	return cpp, errors.Wrap(err, "error unmarshalling ChaincodeProposalPayload")
}

func unmarshalProposalResponsePayload(encoded []byte) (*peer.ProposalResponsePayload, error) {
	prp := &peer.ProposalResponsePayload{}
	err := proto.Unmarshal(encoded, prp)
	return prp, errors.Wrap(err, "error unmarshalling ProposalResponsePayload")
}

func unmarshalChaincodeAction(encoded []byte) (*peer.ChaincodeAction, error) {
	action := &peer.ChaincodeAction{}
	err := proto.Unmarshal(encoded, action)
	return action, errors.Wrap(err, "error unmarshalling ChaincodeAction")
}

func unmarshalProcessedTransaction(encoded []byte) (*peer.ProcessedTransaction, error) {
	ptx := &peer.ProcessedTransaction{}
	err := proto.Unmarshal(encoded, ptx)
	return ptx, errors.Wrap(err, "error unmarshalling ProcessedTransaction")
}

func unmarshalBlockchainInfo(encoded []byte) (*common.BlockchainInfo, error) {
	info := &common.BlockchainInfo{}
	err := proto.Unmarshal(encoded, info)
	return info, errors.Wrap(err, "error unmarshalling BlockchainInfo")
}

// chaincodeActionParts returns the proposal payload, endorsements and
// chaincode action of the first action of an endorser transaction.
func chaincodeActionParts(payload *common.Payload) (*peer.ChaincodeProposalPayload, []*peer.Endorsement, *peer.ChaincodeAction, error) {
	tx, err := unmarshalTransaction(payload.Data)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(tx.Actions) == 0 {
		return nil, nil, nil, errors.New("at least one TransactionAction is required")
	}

	actionPayload, err := unmarshalChaincodeActionPayload(tx.Actions[0].Payload)
	if err != nil {
		return nil, nil, nil, err
	}
	if actionPayload.Action == nil {
		return nil, nil, nil, errors.New("no ChaincodeEndorsedAction in payload")
	}

	proposalPayload, err := unmarshalChaincodeProposalPayload(actionPayload.ChaincodeProposalPayload)
	if err != nil {
		return nil, nil, nil, err
	}

	prp, err := unmarshalProposalResponsePayload(actionPayload.Action.ProposalResponsePayload)
	if err != nil {
		return nil, nil, nil, err
	}
	action, err := unmarshalChaincodeAction(prp.Extension)
	if err != nil {
		return nil, nil, nil, err
	}

	return proposalPayload, actionPayload.Action.Endorsements, action, nil
}
