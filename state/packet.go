package state

import (
	"encoding/json"
	"fmt"
)

type PacketKind uint8

const (
	PacketRouting PacketKind = iota
	PacketData
)

// Packet is the opaque addressed payload carrier moved by the fabric.
// For routing packets, Content is a serialized destination to cost
// mapping; data packet content is never inspected by the engine.
type Packet struct {
	Kind    PacketKind
	Src     NodeId
	Dst     NodeId
	Content []byte
}

func (p *Packet) IsData() bool {
	return p.Kind == PacketData
}

// Fabric is the forwarding collaborator a node hands outbound packets
// to. Sends are fire-and-forget; delivery is neither ordered nor
// reliable.
type Fabric interface {
	Send(from NodeId, port Port, pkt *Packet)
}

// EncodeVector serializes a distance vector into a routing payload.
func EncodeVector(vector map[NodeId]Metric) []byte {
	out, err := json.Marshal(vector)
	if err != nil {
		// a string-keyed numeric map cannot fail to marshal
		panic(err)
	}
	return out
}

// DecodeVector parses a routing payload. Negative or non-numeric costs
// are a decode failure; costs above Infinity clamp to Infinity.
func DecodeVector(content []byte) (map[NodeId]Metric, error) {
	var raw map[NodeId]int
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, err
	}
	vector := make(map[NodeId]Metric, len(raw))
	for dest, cost := range raw {
		if cost < 0 {
			return nil, fmt.Errorf("negative cost %d for %s", cost, dest)
		}
		if cost > int(Infinity) {
			cost = int(Infinity)
		}
		vector[dest] = Metric(cost)
	}
	return vector, nil
}
