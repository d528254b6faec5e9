package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/encodeous/dvsim/fabric"
	"github.com/encodeous/dvsim/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var tracePair string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long: `This will run the configured topology for its duration, applying any
scheduled link changes, and print every node's final routing table.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, err := os.ReadFile(configPath)
		if err != nil {
			panic(err)
		}
		var cfg state.TopologyCfg
		err = yaml.Unmarshal(file, &cfg)
		if err != nil {
			panic(err)
		}
		cfg.ApplyDefaults()
		err = state.TopologyValidator(&cfg)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		net, err := fabric.Build(cfg, level)
		if err != nil {
			panic(err)
		}

		stopTrace := make(chan struct{})
		if tracePair != "" {
			src, dst, ok := strings.Cut(tracePair, ",")
			if !ok || !cfg.HasNode(state.NodeId(src)) || !cfg.HasNode(state.NodeId(dst)) {
				panic(fmt.Sprintf("invalid trace pair: %q", tracePair))
			}
			net.Delivered = func(node state.NodeId, pkt *state.Packet) {
				slog.Info("trace delivered", "node", node, "src", pkt.Src, "seq", string(pkt.Content))
			}
			go func() {
				seq := 0
				t := time.NewTicker(250 * time.Millisecond)
				defer t.Stop()
				for {
					select {
					case <-stopTrace:
						return
					case <-t.C:
						seq++
						net.SendData(state.NodeId(src), state.NodeId(dst), []byte(strconv.Itoa(seq)))
					}
				}
			}()
		}

		net.Start()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-time.After(time.Duration(cfg.DurationMs) * time.Millisecond):
		case <-sig:
		}
		close(stopTrace)

		for _, id := range cfg.Nodes {
			fmt.Printf("--- %s ---\n%s\n", id, state.FormatRoutes(net.Node(id).Routes()))
		}
		net.Stop()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringVarP(&tracePair, "trace", "t", "", "send periodic traceroute packets between two nodes, e.g. -t a,c")
}
