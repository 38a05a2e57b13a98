package cmd

import (
	"fmt"
	"time"

	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/journal"
	"github.com/named-data/ndnd-ddos/fw/sim"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type simArgs struct {
	seed     uint64
	profiler Profiler
}

func cmdSim() *cobra.Command {
	args := simArgs{}
	cmd := &cobra.Command{
		GroupID: "run",
		Use:     "sim CONFIG-FILE",
		Short:   "Simulate an Interest flooding attack",
		Long: `Simulate an Interest flooding attack

Consumers and attackers share an edge router, which reaches the producer
through a core router and the producer's gateway. Every router runs the
DDoS strategy with the settings of the configuration file, and the
scenario comes from its "sim" section. The report is printed as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			cmd.SilenceUsage = true
			return args.run(cmd, argv[0])
		},
	}
	cmd.Flags().Uint64Var(&args.seed, "seed", 0, "Random seed (0 uses fw.seed, or picks one)")
	cmd.Flags().StringVar(&args.profiler.CpuPath, "cpu-profile", "", "Write CPU profile to file")
	cmd.Flags().StringVar(&args.profiler.MemPath, "mem-profile", "", "Write memory profile to file")
	cmd.Flags().StringVar(&args.profiler.BlockPath, "block-profile", "", "Write block profile to file")
	return cmd
}

func (a *simArgs) String() string {
	return "sim"
}

func (a *simArgs) run(cmd *cobra.Command, configFile string) (err error) {
	config, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	defer core.CloseLogger()
	core.StartTimestamp = time.Now()

	j, err := journal.Open(config.Journal.Backend, config.ResolveRelPath(config.Journal.Path))
	if err != nil {
		return fmt.Errorf("unable to open journal: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(j))

	if config.Metrics.Enabled {
		var metrics *core.MetricsServer
		if metrics, err = core.StartMetricsServer(config.Metrics.Bind); err != nil {
			return err
		}
		defer multierr.AppendInvoke(&err, multierr.Close(metrics))
	}

	seed := a.seed
	if seed == 0 {
		seed = config.Fw.Seed
	}
	s, err := sim.New(sim.Options{
		Scenario: config.Sim,
		Seed:     seed,
		Journal:  j,
	})
	if err != nil {
		return err
	}

	if err = a.profiler.Start(); err != nil {
		return err
	}
	report := s.Run()
	if err = a.profiler.Stop(); err != nil {
		core.Log.Warn(a, "Unable to write profiles", "err", err)
	}

	core.Log.Info(a, "Simulation done", "took", time.Since(core.StartTimestamp))
	return report.Write(cmd.OutOrStdout())
}
