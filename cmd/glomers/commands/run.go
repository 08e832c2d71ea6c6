package commands

import (
	"os"

	"github.com/mosaicnetworks/glomers/src/broadcast"
	"github.com/mosaicnetworks/glomers/src/echo"
	"github.com/mosaicnetworks/glomers/src/proto"
	"github.com/mosaicnetworks/glomers/src/runtime"
	"github.com/mosaicnetworks/glomers/src/service"
	"github.com/mosaicnetworks/glomers/src/telemetry"
	"github.com/mosaicnetworks/glomers/src/unique"
	"github.com/mosaicnetworks/glomers/src/version"
	"github.com/spf13/cobra"
)

//NewEchoCmd returns the command that runs an echo node
func NewEchoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "echo",
		Short:   "Run an echo node",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(echo.Payloads, echo.NewFactory(_config.Logger()))
		},
	}
	AddConfigFlags(cmd)
	return cmd
}

//NewUniqueIDsCmd returns the command that runs a unique-id node
func NewUniqueIDsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "unique-ids",
		Short:   "Run a unique id generation node",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(unique.Payloads, unique.NewFactory(_config.Logger()))
		},
	}
	AddConfigFlags(cmd)
	return cmd
}

//NewBroadcastCmd returns the command that runs a gossip broadcast node
func NewBroadcastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "broadcast",
		Short:   "Run a gossip broadcast node",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			factory := broadcast.NewFactory(_config.GossipInterval, _config.Logger())
			return runNode(broadcast.Payloads, factory)
		},
	}
	AddConfigFlags(cmd)
	AddGossipFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

// runNode runs a node on stdin and stdout until stdin is closed.
func runNode(reg *proto.Registry, factory runtime.Factory) error {
	logger := _config.Logger()

	telemetry.SetBuildInfo(version.Version, version.GitCommit)

	if _config.MetricsAddr != "" {
		svc := service.NewService(_config.MetricsAddr, logger)
		go svc.Serve()
		defer svc.Close()

		inner := factory
		factory = func(init *proto.Init, msgID uint64, inj *runtime.Injector) (runtime.Node, error) {
			svc.SetNodeID(init.NodeID)
			return inner(init, msgID, inj)
		}
	}

	r := runtime.NewRuntime(os.Stdin, os.Stdout, reg, logger)

	return r.Run(factory)
}
