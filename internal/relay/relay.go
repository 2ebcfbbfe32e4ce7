package relay

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/mastermeng/fabricrest/internal/dispatch"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("field is missing or Invalid in the request")
	// ErrRegistrationFailed is returned when enrollment left no identity
	// in the wallet.
	ErrRegistrationFailed = errors.New("user registration failed")
	// ErrNotFound is returned when a lifecycle lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

// Identities looks up and enrolls wallet identities.
type Identities interface {
	Exists(user ledger.User) (bool, error)
	Enroll(user ledger.User) error
}

// Connector opens a contract handle as a user.
type Connector interface {
	Connect(user ledger.User, channel, chaincode string) (ledger.Contract, func(), error)
}

// Admin answers channel and ledger queries as the org admin.
type Admin interface {
	Channels(orgName, peer string) ([]string, error)
	CommittedChaincodes(orgName, channel, name string) ([]ledger.ChaincodeDefinition, error)
	ChainInfo(orgName, channel string) (*common.BlockchainInfo, error)
	Block(orgName, channel string, num uint64) (*common.Block, error)
	Transaction(orgName, channel, txID string) (*pb.ProcessedTransaction, error)
}

// Network is everything the relay needs from the Fabric side.
type Network interface {
	Identities
	Connector
	Admin
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(user ledger.User) (string, error)
}

// Service implements the request use-cases. It holds no per-request state.
type Service struct {
	net     Network
	table   dispatch.Table
	tokens  TokenIssuer
	logger  *zap.SugaredLogger
	latency *prometheus.HistogramVec
}

// New creates a Service and registers its metrics with reg.
func New(net Network, table dispatch.Table, tokens TokenIssuer, logger *zap.SugaredLogger, reg prometheus.Registerer) (*Service, error) {
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabricrest",
		Name:      "ledger_call_duration_seconds",
		Help:      "Duration of calls into the Fabric network.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "outcome"})
	if err := reg.Register(latency); err != nil {
		return nil, errors.Wrap(err, "failed to register relay metrics")
	}

	return &Service{net: net, table: table, tokens: tokens, logger: logger, latency: latency}, nil
}

func (s *Service) observe(op string, f func() error) error {
	start := time.Now()
	err := f()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.latency.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	return err
}

func required(fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return errors.Wrapf(ErrMissingField, "'%s'", f[0])
		}
	}
	return nil
}

// ensureIdentity enrolls the user when the wallet does not hold it yet.
func (s *Service) ensureIdentity(user ledger.User) error {
	ok, err := s.net.Exists(user)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	s.logger.Infof("user %s not found in wallet of %s, registering", user.Username, user.OrgName)
	err = s.observe("enroll", func() error { return s.net.Enroll(user) })
	if err != nil && errors.Cause(err) != ledger.ErrAlreadyEnrolled {
		return err
	}

	ok, err = s.net.Exists(user)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrRegistrationFailed, "%s", user.Username)
	}
	return nil
}

// payloadResult returns JSON payloads as JSON and anything else as text.
// An empty or JSON null payload becomes the empty string so a successful
// call never yields a null result.
func payloadResult(payload []byte) interface{} {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	return string(payload)
}
