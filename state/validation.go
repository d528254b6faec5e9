package state

import (
	"fmt"
	"regexp"
	"slices"
)

var namePattern = regexp.MustCompile("^[0-9a-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(%q) = %d > 100 is too long", s, len(s))
	}
	return nil
}

func LocalConfigValidator(node *LocalCfg) error {
	err := NameValidator(string(node.Id))
	if err != nil {
		return err
	}
	if node.HeartbeatMs < 0 {
		return fmt.Errorf("node.HeartbeatMs must not be negative")
	}
	return nil
}

func linkValidator(cfg *TopologyCfg, a, b NodeId, cost Metric) error {
	if a == b {
		return fmt.Errorf("link endpoints must differ: %s", a)
	}
	if !cfg.HasNode(a) {
		return fmt.Errorf("node %s not defined", a)
	}
	if !cfg.HasNode(b) {
		return fmt.Errorf("node %s not defined", b)
	}
	if cost >= Infinity {
		return fmt.Errorf("link %s, %s cost %d must be below %d", a, b, cost, Infinity)
	}
	return nil
}

func TopologyValidator(cfg *TopologyCfg) error {
	seen := make([]NodeId, 0, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		if err := NameValidator(string(node)); err != nil {
			return err
		}
		if slices.Contains(seen, node) {
			return fmt.Errorf("duplicate node: %s", node)
		}
		seen = append(seen, node)
	}
	edges := make([]Pair[NodeId, NodeId], 0, len(cfg.Links))
	for _, link := range cfg.Links {
		if err := linkValidator(cfg, link.A, link.B, link.Cost); err != nil {
			return err
		}
		edge := MakeSortedPair(link.A, link.B)
		if slices.Contains(edges, edge) {
			return fmt.Errorf("duplicate link found: %s, %s", edge.V1, edge.V2)
		}
		edges = append(edges, edge)
		if link.LatencyMs < 0 || link.JitterMs < 0 {
			return fmt.Errorf("link %s, %s latency must not be negative", link.A, link.B)
		}
		if link.Loss < 0 || link.Loss >= 1 {
			return fmt.Errorf("link %s, %s loss %f must be in [0, 1)", link.A, link.B, link.Loss)
		}
	}
	for _, change := range cfg.Changes {
		if change.AtMs < 0 {
			return fmt.Errorf("change at_ms must not be negative")
		}
		switch change.Op {
		case ChangeLinkUp:
			if err := linkValidator(cfg, change.A, change.B, change.Cost); err != nil {
				return err
			}
		case ChangeLinkDown:
			if err := linkValidator(cfg, change.A, change.B, 0); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown change op: %q", change.Op)
		}
	}
	return nil
}
