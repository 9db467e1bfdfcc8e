package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/custody-wallet/cmd/walletd/cmd"
)

var (
	Version   = ""
	BuildTime = ""
	CommitID  = ""
)

// @title           Custody Wallet API
// @version         1.0
// @description     Holds encrypted EVM keys and signs transactions on behalf of their owners.
// @BasePath        /
func main() {
	if err := NewServiceCommand().Execute(); err != nil {
		log.Fatalf("walletd failed: %v", err)
	}
}

func NewServiceCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "walletd <command> [arguments]",
		Short:         "walletd holds encrypted EVM keys and signs transactions for their owners.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       "walletd serve",
	}

	rootCmd.AddCommand(cmd.GetServeCmd().GetCmd())
	rootCmd.AddCommand(cmd.GetBackupCmd().GetCmd())
	rootCmd.AddCommand(GetVersionCmd().GetCmd())

	return rootCmd
}

type versionCmd struct {
	cmd.BaseCmd
}

func GetVersionCmd() *versionCmd {
	c := new(versionCmd)
	c.SetCmd(&cobra.Command{
		Use:     "version",
		Short:   "Print build information.",
		Example: "walletd version",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("%s-%s %s\n", Version, CommitID, BuildTime)
		},
	})
	return c
}
