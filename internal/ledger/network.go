package ledger

import (
	"strings"

	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/mastermeng/fabricrest/internal/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnknownOrg is returned for an organization missing from the server config.
var ErrUnknownOrg = errors.New("unknown organization")

// User identifies the wallet identity a request runs as.
type User struct {
	Username string `json:"username"`
	OrgName  string `json:"orgName"`
}

type org struct {
	name string
	cfg  config.Org
	sdk  *fabsdk.FabricSDK
}

// Network holds one long-lived SDK per configured organization. The SDKs
// serve CA enrollment and admin queries; chaincode calls open their own
// gateway per request.
type Network struct {
	orgs   map[string]*org
	logger *zap.SugaredLogger
}

// Open creates the per-organization SDKs.
func Open(cfg *config.ServerConfig, logger *zap.SugaredLogger) (*Network, error) {
	n := &Network{orgs: make(map[string]*org, len(cfg.Orgs)), logger: logger}
	for name, orgCfg := range cfg.Orgs {
		sdk, err := fabsdk.New(fabconfig.FromFile(orgCfg.ConfigPath))
		if err != nil {
			n.Close()
			return nil, errors.Wrapf(err, "failed to create SDK for org %s", name)
		}
		n.orgs[name] = &org{name: name, cfg: orgCfg, sdk: sdk}
		logger.Infof("loaded org %s (%s) from %s", name, orgCfg.MSPID, orgCfg.ConfigPath)
	}
	return n, nil
}

// Close releases every SDK.
func (n *Network) Close() {
	for _, o := range n.orgs {
		o.sdk.Close()
	}
}

func (n *Network) org(name string) (*org, error) {
	o, ok := n.orgs[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOrg, "%s", name)
	}
	return o, nil
}
