package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Parses and validates a topology config",
	Run: func(cmd *cobra.Command, args []string) {
		file, err := os.ReadFile(configPath)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		var cfg state.TopologyCfg
		err = yaml.Unmarshal(file, &cfg)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		cfg.ApplyDefaults()
		err = state.TopologyValidator(&cfg)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Printf("nodes: %d, links: %d, changes: %d\n", len(cfg.Nodes), len(cfg.Links), len(cfg.Changes))
		for _, l := range cfg.Links {
			fmt.Printf("%s <-%d-> %s", l.A, l.Cost, l.B)
			if l.LatencyMs > 0 || l.Loss > 0 {
				fmt.Printf(" (latency %dms, loss %.2f)", l.LatencyMs, l.Loss)
			}
			fmt.Println()
		}
		for _, c := range cfg.Changes {
			fmt.Printf("at %dms: %s %s, %s", c.AtMs, c.Op, c.A, c.B)
			if c.Op == state.ChangeLinkUp {
				fmt.Printf(" cost %d", c.Cost)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
