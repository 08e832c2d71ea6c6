package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"reflect"
	"time"

	"github.com/mosaicnetworks/glomers/src/broadcast"
	"github.com/mosaicnetworks/glomers/src/config"
	"github.com/mosaicnetworks/glomers/src/net"
	"github.com/mosaicnetworks/glomers/src/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewSimulateCmd returns the command that runs a cluster of broadcast nodes
//in-process and checks that they converge
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Run an in-process cluster of broadcast nodes",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(_config, cmd.OutOrStdout())
		},
	}
	AddConfigFlags(cmd)
	AddGossipFlags(cmd)
	AddSimulateFlags(cmd)
	return cmd
}

//AddSimulateFlags adds flags to the Simulate command
func AddSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().Int("nodes", _config.Simulation.Nodes, "Number of nodes")
	cmd.Flags().Float64("loss", _config.Simulation.Loss, "Probability of dropping a message between nodes")
	cmd.Flags().Int64("seed", _config.Simulation.Seed, "Seed of the random choices")
	cmd.Flags().Int("values", _config.Simulation.Values, "Number of values to broadcast")
	cmd.Flags().Duration("duration", _config.Simulation.Duration, "Maximum time to wait for convergence")
	cmd.Flags().String("topology", _config.Simulation.Topology, "line, grid or full")
}

/*******************************************************************************
* SIMULATE
*******************************************************************************/

// simulate broadcasts values to random nodes of a fresh cluster, then reads
// every node until they all hold every value or the configured duration
// elapses.
func simulate(conf *config.Config, out io.Writer) error {
	sim := conf.Simulation
	logger := conf.Logger()

	ids := net.NodeIDs(sim.Nodes)
	topology, err := net.Topology(sim.Topology, ids)
	if err != nil {
		return err
	}

	if conf.MetricsAddr != "" {
		svc := service.NewService(conf.MetricsAddr, logger)
		go svc.Serve()
		defer svc.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), sim.Duration)
	defer cancel()

	network := net.NewNetwork(ids, broadcast.Payloads, sim.Loss, sim.Seed, logger)
	defer network.Close()

	if err := network.Start(ctx, broadcast.NewFactory(conf.GossipInterval, logger)); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := network.Call(ctx, id, &broadcast.Topology{Topology: topology}); err != nil {
			return err
		}
	}

	rng := rand.New(rand.NewSource(sim.Seed))
	want := make([]uint64, 0, sim.Values)
	for v := 0; v < sim.Values; v++ {
		target := ids[rng.Intn(len(ids))]
		if _, err := network.Call(ctx, target, &broadcast.Broadcast{Message: uint64(v)}); err != nil {
			return err
		}
		want = append(want, uint64(v))
	}

	logger.WithFields(logrus.Fields{
		"nodes":    sim.Nodes,
		"topology": sim.Topology,
		"loss":     sim.Loss,
		"values":   sim.Values,
	}).Info("Values broadcast, waiting for convergence")

	fmt.Fprintf(out, "nodes=%d topology=%s loss=%.2f values=%d\n", sim.Nodes, sim.Topology, sim.Loss, sim.Values)

	start := time.Now()
	counts, err := waitConvergence(ctx, network, ids, want, conf.GossipInterval)
	elapsed := time.Since(start)

	for _, id := range ids {
		fmt.Fprintf(out, "%s %d/%d\n", id, counts[id], len(want))
	}

	if err != nil {
		fmt.Fprintf(out, "not converged after %v\n", elapsed.Round(time.Millisecond))
		return err
	}

	fmt.Fprintf(out, "converged in %v\n", elapsed.Round(time.Millisecond))

	return network.Close()
}

// waitConvergence reads every node once per interval. It returns the number of
// values each node held at the last read.
func waitConvergence(ctx context.Context, network *net.Network, ids []string, want []uint64, interval time.Duration) (map[string]int, error) {
	counts := make(map[string]int, len(ids))

	for {
		converged := true
		for _, id := range ids {
			reply, err := network.Call(ctx, id, &broadcast.Read{})
			if err != nil {
				return counts, err
			}
			got := reply.Body.Payload.(*broadcast.ReadOk).Messages
			counts[id] = len(got)
			if len(want) > 0 && !reflect.DeepEqual(got, want) {
				converged = false
			}
		}

		if converged {
			return counts, nil
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return counts, fmt.Errorf("cluster did not converge: %w", ctx.Err())
		}
	}
}
