package blockdecode

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-protos-go/ledger/rwset"
	"github.com/hyperledger/fabric-protos-go/ledger/rwset/kvrwset"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// Endorser of a transaction.
type Endorser struct {
	MSP  string `json:"msp"`
	Name string `json:"name"`
}

// TransactionDetail is the detail of a transaction, without its read set.
type TransactionDetail struct {
	ChannelName      string      `json:"channel_name"`
	ID               string      `json:"id"`
	Type             string      `json:"type"`
	Creator          string      `json:"creator"`
	CreatorMSP       string      `json:"creator_msp"`
	ChaincodeName    string      `json:"chaincode_name,omitempty"`
	ValidationResult string      `json:"validation_result"`
	BlockNumber      uint64      `json:"block_number"`
	CreatedAt        time.Time   `json:"created_at"`
	Endorsers        []*Endorser `json:"endorsers,omitempty"`
	Value            *RawValue   `json:"raw,omitempty"`
}

// RawValue is the chaincode input and the keys it wrote.
type RawValue struct {
	ChaincodeID *peer.ChaincodeID `json:"chaincodeid,omitempty"`
	Input       []string          `json:"input"`
	IDs         []string          `json:"ids"`
}

// Block is the JSON view of a ledger block.
type Block struct {
	Number       uint64               `json:"number"`
	DataHash     string               `json:"data_hash"`
	PreviousHash string               `json:"previous_hash"`
	TxCount      int                  `json:"tx_count"`
	Transactions []*TransactionDetail `json:"transactions"`
}

// ChainInfo is the JSON view of a channel's ledger height.
type ChainInfo struct {
	Height            uint64 `json:"height"`
	CurrentBlockHash  string `json:"current_block_hash"`
	PreviousBlockHash string `json:"previous_block_hash"`
}

type creatorIdentity struct {
	mspID string
	cert  *x509.Certificate
}

func (c *creatorIdentity) commonName() string {
	if c.cert == nil {
		return ""
	}
	return c.cert.Subject.CommonName
}

func getIdentity(serialized []byte) (*creatorIdentity, error) {
	sid, err := unmarshalSerializedIdentity(serialized)
	if err != nil {
		return nil, err
	}

	identity := &creatorIdentity{mspID: sid.Mspid}
	// idemix and other non-x509 identities keep only the MSP
	if cert, err := decodeX509Pem(sid.IdBytes); err == nil {
		identity.cert = cert
	}
	return identity, nil
}

func decodeX509Pem(certPem []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPem)
	if block == nil {
		return nil, errors.New("bad cert")
	}
	return x509.ParseCertificate(block.Bytes)
}

// DecodeBlockBytes decodes a marshalled block, as returned by the query
// system chaincode.
func DecodeBlockBytes(encoded []byte) (*Block, error) {
	block, err := unmarshalBlock(encoded)
	if err != nil {
		return nil, err
	}
	return DecodeBlock(block)
}

// DecodeBlock converts a ledger block into its JSON view.
func DecodeBlock(block *common.Block) (*Block, error) {
	if block.GetHeader() == nil {
		return nil, errors.New("block has no header")
	}

	out := &Block{
		Number:       block.Header.Number,
		DataHash:     hex.EncodeToString(block.Header.DataHash),
		PreviousHash: hex.EncodeToString(block.Header.PreviousHash),
		Transactions: []*TransactionDetail{},
	}

	flags := txValidationFlags(block)
	for i, data := range block.GetData().GetData() {
		env, err := unmarshalEnvelope(data)
		if err != nil {
			return nil, errors.WithMessagef(err, "transaction %d of block %d", i, out.Number)
		}

		txFlag := int32(peer.TxValidationCode_NOT_VALIDATED)
		if i < len(flags) {
			txFlag = int32(flags[i])
		}

		tx, err := convertEnvelopeToTXDetail(txFlag, env)
		if err != nil {
			return nil, errors.WithMessagef(err, "transaction %d of block %d", i, out.Number)
		}
		tx.BlockNumber = out.Number
		out.Transactions = append(out.Transactions, tx)
	}
	out.TxCount = len(out.Transactions)

	return out, nil
}

func txValidationFlags(block *common.Block) []byte {
	metadata := block.GetMetadata().GetMetadata()
	if len(metadata) <= int(common.BlockMetadataIndex_TRANSACTIONS_FILTER) {
		return nil
	}
	return metadata[common.BlockMetadataIndex_TRANSACTIONS_FILTER]
}

// DecodeProcessedTransactionBytes decodes the result of a transaction
// lookup by ID.
func DecodeProcessedTransactionBytes(encoded []byte) (*TransactionDetail, error) {
	ptx, err := unmarshalProcessedTransaction(encoded)
	if err != nil {
		return nil, err
	}
	return DecodeProcessedTransaction(ptx)
}

// DecodeProcessedTransaction converts a validated transaction into its JSON view.
func DecodeProcessedTransaction(ptx *peer.ProcessedTransaction) (*TransactionDetail, error) {
	if ptx.GetTransactionEnvelope() == nil {
		return nil, errors.New("processed transaction has no envelope")
	}
	return convertEnvelopeToTXDetail(ptx.ValidationCode, ptx.TransactionEnvelope)
}

// DecodeChainInfoBytes decodes the result of a chain info query.
func DecodeChainInfoBytes(encoded []byte) (*ChainInfo, error) {
	info, err := unmarshalBlockchainInfo(encoded)
	if err != nil {
		return nil, err
	}
	return DecodeChainInfo(info), nil
}

// DecodeChainInfo converts ledger height information into its JSON view.
func DecodeChainInfo(info *common.BlockchainInfo) *ChainInfo {
	return &ChainInfo{
		Height:            info.Height,
		CurrentBlockHash:  hex.EncodeToString(info.CurrentBlockHash),
		PreviousBlockHash: hex.EncodeToString(info.PreviousBlockHash),
	}
}

func convertEnvelopeToTXDetail(txFlag int32, env *common.Envelope) (*TransactionDetail, error) {
	payload, err := unmarshalPayload(env.Payload)
	if err != nil {
		return nil, err
	}
	if payload.Header == nil {
		return nil, errors.New("envelope payload has no header")
	}

	chdr, err := unmarshalChannelHeader(payload.Header.ChannelHeader)
	if err != nil {
		return nil, err
	}

	shdr, err := unmarshalSignatureHeader(payload.Header.SignatureHeader)
	if err != nil {
		return nil, err
	}

	tx := &TransactionDetail{
		ChannelName:      chdr.ChannelId,
		ID:               chdr.TxId,
		Type:             common.HeaderType_name[chdr.Type],
		ValidationResult: peer.TxValidationCode_name[txFlag],
	}
	if ts := chdr.GetTimestamp(); ts != nil {
		tx.CreatedAt = time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
	}

	if len(shdr.Creator) > 0 {
		identity, err := getIdentity(shdr.Creator)
		if err != nil {
			return nil, err
		}
		tx.CreatorMSP = identity.mspID
		tx.Creator = identity.commonName()
	}

	// config and other non-endorser transactions only carry headers
	if common.HeaderType(chdr.Type) != common.HeaderType_ENDORSER_TRANSACTION {
		return tx, nil
	}

	hdrExt, err := unmarshalChaincodeHeaderExtension(chdr.Extension)
	if err != nil {
		return nil, err
	}
	if hdrExt.ChaincodeId != nil {
		tx.ChaincodeName = hdrExt.ChaincodeId.Name
	}

	proposalPayload, endorsements, action, err := chaincodeActionParts(payload)
	if err != nil {
		return nil, err
	}

	distinct := map[string]bool{}
	for _, e := range endorsements {
		identity, err := getIdentity(e.Endorser)
		if err != nil {
			return nil, err
		}
		key := identity.mspID + ":" + identity.commonName()
		if distinct[key] {
			continue
		}
		distinct[key] = true
		tx.Endorsers = append(tx.Endorsers, &Endorser{MSP: identity.mspID, Name: identity.commonName()})
	}

	cis := &peer.ChaincodeInvocationSpec{}
	if err := proto.Unmarshal(proposalPayload.Input, cis); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling ChaincodeInvocationSpec")
	}
	tx.Value = parseChaincodeInvocationSpec(cis)

	keys, err := writtenKeys(action, tx.ChaincodeName)
	if err != nil {
		return nil, err
	}
	tx.Value.IDs = keys

	return tx, nil
}

func parseChaincodeInvocationSpec(cis *peer.ChaincodeInvocationSpec) *RawValue {
	raw := &RawValue{ChaincodeID: cis.GetChaincodeSpec().GetChaincodeId()}

	args := cis.GetChaincodeSpec().GetInput().GetArgs()
	raw.Input = make([]string, len(args))
	for i := range args {
		raw.Input[i] = string(args[i])
	}
	return raw
}

func writtenKeys(action *peer.ChaincodeAction, chaincodeName string) ([]string, error) {
	txRWSet := &rwset.TxReadWriteSet{}
	if err := proto.Unmarshal(action.GetResults(), txRWSet); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling TxReadWriteSet")
	}

	keys := make([]string, 0)
	for _, ns := range txRWSet.NsRwset {
		if ns.Namespace != chaincodeName {
			continue
		}
		kvRWSet := &kvrwset.KVRWSet{}
		if err := proto.Unmarshal(ns.Rwset, kvRWSet); err != nil {
			return nil, errors.Wrap(err, "error unmarshalling KVRWSet")
		}
		for _, write := range kvRWSet.Writes {
			keys = append(keys, write.Key)
		}
	}
	return keys, nil
}
