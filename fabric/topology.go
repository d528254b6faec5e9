package fabric

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/encodeous/dvsim/state"
)

// Build assembles a network from a topology config. Scheduled changes
// are armed when Start is called.
func Build(cfg state.TopologyCfg, level slog.Level) (*Network, error) {
	cfg.ApplyDefaults()
	if err := state.TopologyValidator(&cfg); err != nil {
		return nil, err
	}
	n := NewNetwork(level, cfg.TickMs)
	for _, id := range cfg.Nodes {
		lcfg := state.LocalCfg{
			Id:          id,
			HeartbeatMs: cfg.HeartbeatMs,
		}
		if cfg.LogDir != "" {
			lcfg.LogPath = filepath.Join(cfg.LogDir, string(id)+".log")
		}
		if _, err := n.AddNode(lcfg); err != nil {
			n.Stop()
			return nil, err
		}
	}
	for _, l := range cfg.Links {
		link, err := n.AddLink(l.A, l.B, l.Cost)
		if err != nil {
			n.Stop()
			return nil, err
		}
		link.WithLatency(
			time.Duration(l.LatencyMs)*time.Millisecond,
			time.Duration(l.JitterMs)*time.Millisecond,
		).WithLoss(l.Loss)
	}
	n.changes = cfg.Changes
	return n, nil
}
