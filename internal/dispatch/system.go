package dispatch

import (
	"encoding/hex"
	"strconv"

	"github.com/pkg/errors"
)

// System chaincode function names.
const (
	GetChainInfo       = "GetChainInfo"
	GetBlockByNumber   = "GetBlockByNumber"
	GetBlockByHash     = "GetBlockByHash"
	GetTransactionByID = "GetTransactionByID"
	GetBlockByTxID     = "GetBlockByTxID"
	GetChaincodes      = "GetChaincodes"
	GetChaincodeData   = "GetChaincodeData"
)

var (
	// ErrUnknownSystemFunction is returned for a function the system query
	// endpoint does not serve.
	ErrUnknownSystemFunction = errors.New("unsupported system chaincode function")
	// ErrInvalidSystemArg is returned for a block number or hash that
	// cannot be parsed.
	ErrInvalidSystemArg = errors.New("invalid system chaincode argument")
)

// SystemTable is the shape of each supported system query, not counting
// the channel name.
var SystemTable = Table{
	GetChainInfo:       {Arity: 0},
	GetBlockByNumber:   {Arity: 1},
	GetBlockByHash:     {Arity: 1},
	GetTransactionByID: {Arity: 1},
	GetBlockByTxID:     {Arity: 1},
	GetChaincodes:      {Arity: 0},
	GetChaincodeData:   {Arity: 1},
}

// IsLifecycle reports whether fcn is answered from chaincode definitions
// rather than from the query system chaincode.
func IsLifecycle(fcn string) bool {
	return fcn == GetChaincodes || fcn == GetChaincodeData
}

// RouteSystem validates a system query and returns its arguments, with the
// channel name first. A leading argument equal to the channel is not
// repeated.
func RouteSystem(channel, fcn string, args []string) (Call, error) {
	if _, ok := SystemTable[fcn]; !ok {
		return Call{}, errors.Wrapf(ErrUnknownSystemFunction, "%s", fcn)
	}
	if len(args) > 0 && args[0] == channel && len(args) > SystemTable[fcn].Arity {
		args = args[1:]
	}

	call, err := SystemTable.Route(fcn, args, nil)
	if err != nil {
		return Call{}, err
	}

	switch fcn {
	case GetBlockByNumber:
		if _, err := strconv.ParseUint(call.Args[0], 10, 64); err != nil {
			return Call{}, errors.Wrapf(ErrInvalidSystemArg, "block number %q is not an unsigned integer", call.Args[0])
		}
	case GetBlockByHash:
		hash, err := hex.DecodeString(call.Args[0])
		if err != nil {
			return Call{}, errors.Wrapf(ErrInvalidSystemArg, "block hash %q is not hex encoded", call.Args[0])
		}
		call.Args[0] = string(hash)
	}

	call.Args = append([]string{channel}, call.Args...)
	return call, nil
}
