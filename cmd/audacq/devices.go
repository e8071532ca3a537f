// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ik5/audacq/capture"
	"github.com/spf13/cobra"
)

func devicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := capture.Devices(a.log)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tDEFAULT\tNAME\tID")
			for _, d := range devices {
				def := ""
				if d.Default {
					def = "*"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.Index, def, d.Name, d.ID)
			}
			return tw.Flush()
		},
	}
}
