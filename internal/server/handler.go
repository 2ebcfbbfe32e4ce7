package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mastermeng/fabricrest/internal/blockdecode"
	"github.com/mastermeng/fabricrest/internal/dispatch"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/mastermeng/fabricrest/internal/relay"
	"github.com/pkg/errors"
)

// Relay is the request logic behind the routes.
type Relay interface {
	Register(user ledger.User) (*relay.AuthResponse, error)
	Login(user ledger.User) (*relay.AuthResponse, error)
	Invoke(user ledger.User, req relay.InvokeRequest) (interface{}, error)
	Query(user ledger.User, req relay.QueryRequest) (interface{}, error)
	QuerySystem(user ledger.User, req relay.QueryRequest) (interface{}, error)
	Channels(user ledger.User, peer string) ([]string, error)
	ChainInfo(user ledger.User, channel string) (*blockdecode.ChainInfo, error)
	Block(user ledger.User, channel string, num uint64) (*blockdecode.Block, error)
	Transaction(user ledger.User, channel, txID string) (*blockdecode.TransactionDetail, error)
}

// Credentials is the body of the user routes.
type Credentials struct {
	Username string `json:"username"`
	OrgName  string `json:"orgName"`
}

// InvokeBody is the body of the invoke route. Args may be an array or a
// string holding one.
type InvokeBody struct {
	Fcn       string          `json:"fcn"`
	Args      json.RawMessage `json:"args"`
	Peers     []string        `json:"peers"`
	Transient json.RawMessage `json:"transient"`
}

func (s *Server) healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) register(ctx *gin.Context) {
	s.userRoute(ctx, s.relay.Register)
}

func (s *Server) login(ctx *gin.Context) {
	s.userRoute(ctx, s.relay.Login)
}

func (s *Server) userRoute(ctx *gin.Context, f func(ledger.User) (*relay.AuthResponse, error)) {
	creds := new(Credentials)
	if err := ctx.ShouldBindJSON(creds); err != nil {
		ctx.JSON(http.StatusBadRequest, relay.AuthResponse{Success: false, Message: err.Error()})
		return
	}

	user := ledger.User{Username: creds.Username, OrgName: creds.OrgName}
	resp, err := f(user)
	if err != nil {
		status, _ := classify(err)
		s.logger.Warnf("user request for %s of %s failed: %s", user.Username, user.OrgName, err)
		ctx.JSON(status, relay.AuthResponse{Success: false, Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func (s *Server) invoke(ctx *gin.Context) {
	body := new(InvokeBody)
	if err := ctx.ShouldBindJSON(body); err != nil {
		s.failure(ctx, errors.Wrap(dispatch.ErrMalformedArgs, err.Error()))
		return
	}
	args, err := dispatch.ParseArgs(body.Args)
	if err != nil {
		s.failure(ctx, err)
		return
	}
	transient, err := dispatch.ParseTransient(body.Transient)
	if err != nil {
		s.failure(ctx, err)
		return
	}

	result, err := s.relay.Invoke(currentUser(ctx), relay.InvokeRequest{
		ChannelName:   ctx.Param("channel"),
		ChaincodeName: ctx.Param("chaincode"),
		Fcn:           body.Fcn,
		Args:          args,
		Peers:         body.Peers,
		Transient:     transient,
	})
	if err != nil {
		s.failure(ctx, err)
		return
	}
	s.success(ctx, result)
}

func (s *Server) queryRequest(ctx *gin.Context) (relay.QueryRequest, error) {
	args, err := dispatch.ParseArgsString(ctx.Query("args"))
	if err != nil {
		return relay.QueryRequest{}, err
	}
	return relay.QueryRequest{
		ChannelName:   ctx.Param("channel"),
		ChaincodeName: ctx.Param("chaincode"),
		Fcn:           ctx.Query("fcn"),
		Args:          args,
		Peer:          ctx.Query("peer"),
	}, nil
}

func (s *Server) query(ctx *gin.Context) {
	req, err := s.queryRequest(ctx)
	if err != nil {
		s.failure(ctx, err)
		return
	}
	result, err := s.relay.Query(currentUser(ctx), req)
	if err != nil {
		s.failure(ctx, err)
		return
	}
	s.success(ctx, result)
}

func (s *Server) querySystem(ctx *gin.Context) {
	req, err := s.queryRequest(ctx)
	if err != nil {
		s.failure(ctx, err)
		return
	}
	result, err := s.relay.QuerySystem(currentUser(ctx), req)
	if err != nil {
		s.failure(ctx, err)
		return
	}
	s.success(ctx, result)
}

func (s *Server) channels(ctx *gin.Context) {
	channels, err := s.relay.Channels(currentUser(ctx), ctx.Query("peer"))
	if err != nil {
		s.failure(ctx, err)
		return
	}
	s.success(ctx, channels)
}

func (s *Server) chainInfo(ctx *gin.Context) {
	info, err := s.relay.ChainInfo(currentUser(ctx), ctx.Param("channel"))
	if err != nil {
		s.failure(ctx, err)
		return
	}
	s.success(ctx, info)
}

func (s *Server) block(ctx *gin.Context) {
	num, err := strconv.ParseUint(ctx.Param("number"), 10, 64)
	if err != nil {
		s.failure(ctx, errors.Wrapf(dispatch.ErrInvalidSystemArg, "block number %q", ctx.Param("number")))
		return
	}
	block, err := s.relay.Block(currentUser(ctx), ctx.Param("channel"), num)
	if err != nil {
		s.failure(ctx, err)
		return
	}
	s.success(ctx, block)
}

func (s *Server) transaction(ctx *gin.Context) {
	tx, err := s.relay.Transaction(currentUser(ctx), ctx.Param("channel"), ctx.Param("txid"))
	if err != nil {
		s.failure(ctx, err)
		return
	}
	s.success(ctx, tx)
}
