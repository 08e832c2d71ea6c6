package main

import (
	"os"

	cmd "github.com/mosaicnetworks/glomers/cmd/glomers/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewEchoCmd(),
		cmd.NewUniqueIDsCmd(),
		cmd.NewBroadcastCmd(),
		cmd.NewSimulateCmd())

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
