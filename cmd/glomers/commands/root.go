package commands

import (
	"github.com/mosaicnetworks/glomers/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for glomers
var RootCmd = &cobra.Command{
	Use:   "glomers",
	Short: "nodes for a simulated distributed systems harness",
	Long: `glomers runs one node of a simulated cluster. The node reads one JSON
message per line on stdin and writes its messages to stdout. Logs go to
stderr.`,
	TraverseChildren: true,
}
