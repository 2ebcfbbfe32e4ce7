package ledger

import (
	"encoding/hex"
	"io/ioutil"
	"path/filepath"

	mspclient "github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/pkg/errors"
)

// ErrAlreadyEnrolled is returned when the wallet already holds the identity.
var ErrAlreadyEnrolled = errors.New("identity already exists in the wallet")

func (o *org) wallet() (*gateway.Wallet, error) {
	wallet, err := gateway.NewFileSystemWallet(o.cfg.WalletPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open wallet %s", o.cfg.WalletPath)
	}
	return wallet, nil
}

// Exists reports whether the org wallet holds an identity for the user.
func (n *Network) Exists(user User) (bool, error) {
	o, err := n.org(user.OrgName)
	if err != nil {
		return false, err
	}
	wallet, err := o.wallet()
	if err != nil {
		return false, err
	}
	return wallet.Exists(user.Username), nil
}

// Enroll registers the user with the org CA, enrolls it and stores the
// resulting X.509 identity in the org wallet.
func (n *Network) Enroll(user User) error {
	o, err := n.org(user.OrgName)
	if err != nil {
		return err
	}
	wallet, err := o.wallet()
	if err != nil {
		return err
	}
	if wallet.Exists(user.Username) {
		return errors.Wrapf(ErrAlreadyEnrolled, "%s", user.Username)
	}

	client, err := mspclient.New(o.sdk.Context(), mspclient.WithOrg(o.name))
	if err != nil {
		return errors.Wrapf(err, "failed to create msp client for org %s", o.name)
	}

	secret, err := client.Register(&mspclient.RegistrationRequest{
		Name:        user.Username,
		Type:        "client",
		Affiliation: o.cfg.Affiliation,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to register %s", user.Username)
	}

	if err := client.Enroll(user.Username, mspclient.WithSecret(secret)); err != nil {
		return errors.Wrapf(err, "failed to enroll %s", user.Username)
	}

	signingIdentity, err := client.GetSigningIdentity(user.Username)
	if err != nil {
		return errors.Wrapf(err, "failed to load signing identity for %s", user.Username)
	}

	key, err := readPrivateKey(o.cfg.KeystorePath, signingIdentity.PrivateKey().SKI())
	if err != nil {
		return err
	}

	identity := gateway.NewX509Identity(o.cfg.MSPID, string(signingIdentity.EnrollmentCertificate()), string(key))
	if err := wallet.Put(user.Username, identity); err != nil {
		return errors.Wrapf(err, "failed to store %s in wallet", user.Username)
	}

	n.logger.Infof("enrolled %s for org %s", user.Username, o.name)
	return nil
}

// readPrivateKey loads a PEM private key from the SDK file keystore, where
// keys are named after their hex encoded SKI.
func readPrivateKey(keystore string, ski []byte) ([]byte, error) {
	if keystore == "" {
		return nil, errors.New("keystorePath is not configured")
	}
	path := filepath.Join(keystore, hex.EncodeToString(ski)+"_sk")
	key, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read private key %s", path)
	}
	return key, nil
}
