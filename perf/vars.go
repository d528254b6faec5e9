package perf

import (
	"expvar"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency          = metric.NewHistogram("1m1s")
	SentPacketPerSecond      = metric.NewCounter("10s1s")
	DeliveredPacketPerSecond = metric.NewCounter("10s1s")
	DroppedPacketPerSecond   = metric.NewCounter("10s1s")
)

func init() {
	expvar.Publish("dvsim:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("dvsim:SentPacket/s", SentPacketPerSecond)
	expvar.Publish("dvsim:DeliveredPacket/s", DeliveredPacketPerSecond)
	expvar.Publish("dvsim:DroppedPacket/s", DroppedPacketPerSecond)
}
