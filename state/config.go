package state

// LocalCfg represents node-level configuration
type LocalCfg struct {
	Id          NodeId `yaml:"id"`
	HeartbeatMs int64  `yaml:"heartbeat_ms,omitempty"` // interval between periodic vector broadcasts
	LogPath     string `yaml:"log_path,omitempty"`     // if not empty, the node will also write logs to this file
}

// LinkCfg is one bidirectional link of the starting topology.
type LinkCfg struct {
	A         NodeId  `yaml:"a"`
	B         NodeId  `yaml:"b"`
	Cost      Metric  `yaml:"cost"`
	LatencyMs int64   `yaml:"latency_ms,omitempty"`
	JitterMs  int64   `yaml:"jitter_ms,omitempty"`
	Loss      float64 `yaml:"loss,omitempty"` // probability in [0,1) that a packet is dropped per traversal
}

// ChangeCfg is a scheduled topology change applied while the
// simulation runs.
type ChangeCfg struct {
	AtMs int64  `yaml:"at_ms"`
	Op   string `yaml:"op"` // "up" or "down"
	A    NodeId `yaml:"a"`
	B    NodeId `yaml:"b"`
	Cost Metric `yaml:"cost,omitempty"` // only for "up"
}

const (
	ChangeLinkUp   = "up"
	ChangeLinkDown = "down"
)

// TopologyCfg describes a whole simulated network.
type TopologyCfg struct {
	Nodes       []NodeId    `yaml:"nodes"`
	Links       []LinkCfg   `yaml:"links"`
	Changes     []ChangeCfg `yaml:"changes,omitempty"`
	HeartbeatMs int64       `yaml:"heartbeat_ms,omitempty"`
	TickMs      int64       `yaml:"tick_ms,omitempty"`
	DurationMs  int64       `yaml:"duration_ms,omitempty"`
	LogDir      string      `yaml:"log_dir,omitempty"`
}

func (c *TopologyCfg) ApplyDefaults() {
	if c.HeartbeatMs <= 0 {
		c.HeartbeatMs = DefaultHeartbeatMs
	}
	if c.TickMs <= 0 {
		c.TickMs = DefaultTickMs
	}
	if c.DurationMs <= 0 {
		c.DurationMs = DefaultDurationMs
	}
}

func (c *TopologyCfg) HasNode(node NodeId) bool {
	for _, n := range c.Nodes {
		if n == node {
			return true
		}
	}
	return false
}
