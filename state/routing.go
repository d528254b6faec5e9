package state

import (
	"fmt"
	"slices"
	"strings"
)

type NodeId string

// Port identifies one attachment point of a link on a node. Ports are
// allocated by the fabric and are only meaningful to the node that owns
// them.
type Port int

// Metric is a scalar additive route cost in [0, Infinity].
type Metric uint16

// AddMetric adds two costs, saturating at Infinity.
func AddMetric(a, b Metric) Metric {
	if a >= Infinity || b >= Infinity {
		return Infinity
	}
	return min(Infinity, a+b)
}

// RouteEntry is the selected route for a single destination.
type RouteEntry struct {
	Cost Metric
	// Nh is the neighbour packets for this destination are forwarded
	// to. Empty only when Cost == Infinity.
	Nh NodeId
}

// Neighbour is a directly attached node: the port and cost of the link
// to it, and the most recent distance vector it advertised. All three
// share a lifecycle, created on link-up and destroyed on link-down.
type Neighbour struct {
	Id   NodeId
	Port Port
	Cost Metric
	// Adv maps destination to the cost this neighbour last advertised.
	// Empty until the first routing packet arrives.
	Adv map[NodeId]Metric
}

// RouterState holds all routing state of one node. Access must be done
// only on the node's main goroutine.
type RouterState struct {
	Id         NodeId
	Routes     map[NodeId]RouteEntry
	Neighbours []*Neighbour

	HeartbeatMs     int64
	LastBroadcastMs int64
}

func (s *RouterState) GetNeighbour(node NodeId) *Neighbour {
	nIdx := slices.IndexFunc(s.Neighbours, func(neighbour *Neighbour) bool {
		return neighbour.Id == node
	})
	if nIdx == -1 {
		return nil
	}
	return s.Neighbours[nIdx]
}

func (s *RouterState) NeighbourByPort(port Port) *Neighbour {
	nIdx := slices.IndexFunc(s.Neighbours, func(neighbour *Neighbour) bool {
		return neighbour.Port == port
	})
	if nIdx == -1 {
		return nil
	}
	return s.Neighbours[nIdx]
}

func (s *RouterState) StringRoutes() string {
	return FormatRoutes(s.Routes)
}

// FormatRoutes renders a routing table one destination per line, in
// destination order.
func FormatRoutes(routes map[NodeId]RouteEntry) string {
	dests := make([]NodeId, 0, len(routes))
	for dst := range routes {
		dests = append(dests, dst)
	}
	slices.Sort(dests)
	out := make([]string, 0, len(dests))
	for _, dst := range dests {
		entry := routes[dst]
		out = append(out, fmt.Sprintf("%s via (nh: %s, cost: %d)", dst, entry.Nh, entry.Cost))
	}
	return strings.Join(out, "\n")
}
