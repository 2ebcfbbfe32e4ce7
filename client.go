package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mastermeng/fabricrest/internal/apiclient"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	urlKey   = "url"
	tokenKey = "token"
)

type userOptions struct {
	username string
	orgName  string
}

// chaincodeOptions holds the flags of one chaincode command. Each command
// owns its own copy so defaults never leak between commands.
type chaincodeOptions struct {
	channelName   string
	chaincodeName string
	fcn           string
	args          []string
	queryArgs     string
	peers         []string
	peer          string
	transient     string
}

// clientFlags adds the connection flags; FABRICREST_URL and
// FABRICREST_TOKEN work too.
func clientFlags(flags *pflag.FlagSet) {
	flags.String(urlKey, "http://localhost:4000", "Base URL of the relay.")
	flags.String(tokenKey, "", "Bearer token returned by register or login.")
	viper.BindPFlag(urlKey, flags.Lookup(urlKey))
	viper.BindPFlag(tokenKey, flags.Lookup(tokenKey))
}

func (o *userOptions) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&o.username, "username", "u", "", "Name of the user.")
	flags.StringVarP(&o.orgName, "org", "o", "Org1", "Organization of the user.")
}

func (o *userOptions) user() apiclient.User {
	return apiclient.User{Username: o.username, OrgName: o.orgName}
}

func (o *chaincodeOptions) flags(flags *pflag.FlagSet, defaultChaincode string) {
	flags.StringVarP(&o.channelName, "channel", "C", "mychannel", "Channel name.")
	flags.StringVarP(&o.chaincodeName, "chaincode", "n", defaultChaincode, "Chaincode name.")
	flags.StringVarP(&o.fcn, "fcn", "f", "", "Function to call.")
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString(urlKey))
}

func session() apiclient.Session {
	return apiclient.Session{Token: viper.GetString(tokenKey)}
}

func registerCmd() *cobra.Command {
	opts := &userOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Enroll a user and print its token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().Register(context.Background(), opts.user())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	opts.flags(cmd.Flags())
	return cmd
}

func loginCmd() *cobra.Command {
	opts := &userOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in an enrolled user and print its token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().Login(context.Background(), opts.user())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	opts.flags(cmd.Flags())
	return cmd
}

func invokeCmd() *cobra.Command {
	opts := &chaincodeOptions{}
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Submit a chaincode transaction.",
		Long:  `Submit a chaincode transaction. Blank --arg and --peer values are dropped; --transient takes a JSON object.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.invokeRequest()
			if err != nil {
				return err
			}
			env, err := newClient().InvokeChaincode(context.Background(), session(), req)
			return printEnvelope(cmd.OutOrStdout(), env, err)
		},
	}
	opts.flags(cmd.Flags(), "")
	cmd.Flags().StringArrayVarP(&opts.args, "arg", "a", nil, "Positional argument; repeat for more.")
	cmd.Flags().StringArrayVarP(&opts.peers, "peer", "p", nil, "Endorsing peer; repeat for more.")
	cmd.Flags().StringVarP(&opts.transient, "transient", "t", "", "Transient data as a JSON object.")
	cmd.MarkFlagRequired("chaincode")
	return cmd
}

func queryCmd() *cobra.Command {
	opts := &chaincodeOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Evaluate a chaincode transaction.",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := opts.queryRequest()
			req.Peer = strings.TrimSpace(opts.peer)
			env, err := newClient().QueryChaincode(context.Background(), session(), req)
			return printEnvelope(cmd.OutOrStdout(), env, err)
		},
	}
	opts.flags(cmd.Flags(), "")
	cmd.Flags().StringVarP(&opts.queryArgs, "args", "a", "[]", "Arguments as a JSON array.")
	cmd.Flags().StringVarP(&opts.peer, "peer", "p", "", "Peer to evaluate on.")
	cmd.MarkFlagRequired("chaincode")
	return cmd
}

func qsccCmd() *cobra.Command {
	opts := &chaincodeOptions{}
	cmd := &cobra.Command{
		Use:   "qscc",
		Short: "Query ledger metadata through the query system chaincode.",
		Long: `Query ledger metadata. Functions: GetChainInfo, GetBlockByNumber,
GetBlockByHash, GetTransactionByID, GetBlockByTxID, GetChaincodes,
GetChaincodeData.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClient().QueryQSCC(context.Background(), session(), opts.queryRequest())
			return printEnvelope(cmd.OutOrStdout(), env, err)
		},
	}
	opts.flags(cmd.Flags(), "qscc")
	cmd.Flags().StringVarP(&opts.queryArgs, "args", "a", "[]", "Arguments as a JSON array.")
	return cmd
}

func (o *chaincodeOptions) invokeRequest() (apiclient.InvokeRequest, error) {
	data, err := parseTransient(o.transient)
	if err != nil {
		return apiclient.InvokeRequest{}, err
	}
	return apiclient.InvokeRequest{
		ChannelName:   o.channelName,
		ChaincodeName: o.chaincodeName,
		Fcn:           o.fcn,
		Args:          nonBlank(o.args),
		Peers:         nonBlank(o.peers),
		Transient:     data,
	}, nil
}

func (o *chaincodeOptions) queryRequest() apiclient.QueryRequest {
	return apiclient.QueryRequest{
		ChannelName:   o.channelName,
		ChaincodeName: o.chaincodeName,
		Fcn:           o.fcn,
		Args:          o.queryArgs,
	}
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseTransient(s string) (map[string]interface{}, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	data := make(map[string]interface{})
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, errors.Wrap(err, "transient data must be a JSON object")
	}
	return data, nil
}

// printEnvelope prints the reply; transport failures are printed in the
// same envelope shape.
func printEnvelope(w io.Writer, env *apiclient.Envelope, err error) error {
	if err != nil {
		class := "Error"
		if errors.Cause(err) == apiclient.ErrUnauthorized {
			class = "Unauthorized"
		}
		msg := err.Error()
		env = &apiclient.Envelope{Result: json.RawMessage("null"), Error: &class, ErrorData: &msg}
	}
	if perr := printJSON(w, env); perr != nil {
		return perr
	}
	if env.Failed() {
		return env.Err()
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	_, err = fmt.Fprintln(w, string(buf))
	return err
}
