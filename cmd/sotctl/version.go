package main

import (
	"fmt"
	"strings"

	sot "github.com/aretw0/sot"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sotctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sotctl version %s\n", strings.TrimSpace(sot.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
