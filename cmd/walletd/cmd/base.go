// Package cmd holds the walletd subcommands.
package cmd

import (
	"github.com/spf13/cobra"
)

// BaseCmd carries the cobra command of a subcommand.
type BaseCmd struct {
	Cmd *cobra.Command
}

func (t *BaseCmd) SetCmd(cmd *cobra.Command) {
	t.Cmd = cmd
}

func (t *BaseCmd) GetCmd() *cobra.Command {
	return t.Cmd
}
