package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/bequest/host"
)

func newHWIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hwid",
		Short: "Print this machine's hardware id",
		Long:  "Print the hardware id that --bind-local binds to and that verify uses by default.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := host.HardwareID()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
