package cmd

import (
	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/table"
	"github.com/spf13/cobra"
)

// CmdDdos is the root command of the DDoS mitigation tools.
var CmdDdos = &cobra.Command{
	Use:     "ndnd-ddos",
	Short:   "DDoS mitigation strategy for NDN forwarders",
	Version: core.Version,
}

func init() {
	cobra.EnableCommandSorting = false
	CmdDdos.Root().CompletionOptions.HiddenDefaultCmd = true
	CmdDdos.PersistentFlags().BoolP("help", "h", false, "Print usage")
	CmdDdos.PersistentFlags().Lookup("help").Hidden = true

	CmdDdos.AddGroup(&cobra.Group{ID: "run", Title: "Simulation"})
	CmdDdos.AddCommand(cmdSim())

	CmdDdos.AddGroup(&cobra.Group{ID: "inspect", Title: "Inspection"})
	CmdDdos.AddCommand(cmdRecords())
	CmdDdos.AddCommand(cmdConfig())
}

// loadConfig reads a configuration file and makes it the global configuration.
func loadConfig(path string) (*core.Config, error) {
	config, err := core.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	core.C = config
	table.Configure(config)
	if err := core.OpenLogger(); err != nil {
		return nil, err
	}
	return config, nil
}
