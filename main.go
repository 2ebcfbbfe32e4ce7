/*
fabricrest relays REST calls from a web front end to the chaincodes of a
Hyperledger Fabric network. The serve command runs the relay; the other
commands drive a running relay the way the front end's forms do.
*/

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMainCmd() *cobra.Command {
	mainCmd := &cobra.Command{
		Use:          "fabricrest",
		Short:        "REST relay for Hyperledger Fabric chaincodes",
		SilenceUsage: true,
	}
	clientFlags(mainCmd.PersistentFlags())

	mainCmd.AddCommand(serveCmd())
	mainCmd.AddCommand(registerCmd())
	mainCmd.AddCommand(loginCmd())
	mainCmd.AddCommand(invokeCmd())
	mainCmd.AddCommand(queryCmd())
	mainCmd.AddCommand(qsccCmd())
	return mainCmd
}

func main() {
	viper.SetEnvPrefix("FABRICREST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if newMainCmd().Execute() != nil {
		os.Exit(1)
	}
}
