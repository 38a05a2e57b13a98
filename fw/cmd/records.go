package cmd

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/journal"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type recordsArgs struct {
	router string
	prefix string
}

func cmdRecords() *cobra.Command {
	args := recordsArgs{}
	cmd := &cobra.Command{
		GroupID: "inspect",
		Use:     "records CONFIG-FILE",
		Short:   "List the attack record snapshots of a journal",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			cmd.SilenceUsage = true
			return args.run(cmd, argv[0])
		},
	}
	cmd.Flags().StringVar(&args.router, "router", "", "Only list snapshots of this router")
	cmd.Flags().StringVar(&args.prefix, "prefix", "", "Only list snapshots of this prefix")
	return cmd
}

func (a *recordsArgs) run(cmd *cobra.Command, configFile string) (err error) {
	config, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	defer core.CloseLogger()

	j, err := journal.Open(config.Journal.Backend, config.ResolveRelPath(config.Journal.Path))
	if err != nil {
		return fmt.Errorf("unable to open journal: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(j))

	snapshots, err := j.List()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(a.filter(snapshots))
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func (a *recordsArgs) filter(snapshots []*journal.Snapshot) []*journal.Snapshot {
	ret := make([]*journal.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if a.router != "" && s.Router != a.router {
			continue
		}
		if a.prefix != "" && s.Prefix != a.prefix {
			continue
		}
		ret = append(ret, s)
	}
	return ret
}

func cmdConfig() *cobra.Command {
	return &cobra.Command{
		GroupID: "inspect",
		Use:     "config",
		Short:   "Print the default configuration",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(core.DefaultConfig())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
