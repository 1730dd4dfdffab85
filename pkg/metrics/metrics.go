package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pabgp/pabgp/pkg/packet/bgp"
	"github.com/pabgp/pabgp/pkg/packet/stream"
)

var (
	typeLabels = []string{"peer", "type"}
	kindLabels = []string{"peer", "kind"}
	peerLabels = []string{"peer"}

	bgpCodecDecodedTotalDesc    = prometheus.NewDesc("bgp_codec_decoded_messages_total", "Number of BGP messages decoded from peer", typeLabels, nil)
	bgpCodecEncodedTotalDesc    = prometheus.NewDesc("bgp_codec_encoded_messages_total", "Number of BGP messages encoded for peer", typeLabels, nil)
	bgpCodecDecodeErrorsDesc    = prometheus.NewDesc("bgp_codec_decode_errors_total", "Number of BGP messages from peer which failed to decode", kindLabels, nil)
	bgpCodecIncompleteTotalDesc = prometheus.NewDesc("bgp_codec_incomplete_total", "Number of decode attempts which needed more bytes", peerLabels, nil)
)

type peerCounters struct {
	decoded    map[uint8]uint64
	encoded    map[uint8]uint64
	failed     map[bgp.ErrorKind]uint64
	incomplete uint64
}

type codecCollector struct {
	mu    sync.Mutex
	peers map[string]*peerCounters
}

// CodecCollector counts what the stream codecs of every peer decode and
// encode. It is a prometheus.Collector; Observer hands out the per-peer
// stream.Observer.
type CodecCollector interface {
	prometheus.Collector
	Observer(peer string) stream.Observer
}

func NewCodecCollector() CodecCollector {
	return &codecCollector{peers: make(map[string]*peerCounters)}
}

func (c *codecCollector) Observer(peer string) stream.Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.peers[peer]; !ok {
		c.peers[peer] = &peerCounters{
			decoded: make(map[uint8]uint64),
			encoded: make(map[uint8]uint64),
			failed:  make(map[bgp.ErrorKind]uint64),
		}
	}
	return &peerObserver{collector: c, peer: peer}
}

func (c *codecCollector) update(peer string, f func(*peerCounters)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(c.peers[peer])
}

func (c *codecCollector) Describe(out chan<- *prometheus.Desc) {
	out <- bgpCodecDecodedTotalDesc
	out <- bgpCodecEncodedTotalDesc
	out <- bgpCodecDecodeErrorsDesc
	out <- bgpCodecIncompleteTotalDesc
}

func (c *codecCollector) Collect(out chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.peers))
	for name := range c.peers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, peer := range names {
		p := c.peers[peer]
		send := func(desc *prometheus.Desc, cnt uint64, label string) {
			out <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(cnt), peer, label)
		}
		for t, cnt := range p.decoded {
			send(bgpCodecDecodedTotalDesc, cnt, bgp.MessageTypeString(t))
		}
		for t, cnt := range p.encoded {
			send(bgpCodecEncodedTotalDesc, cnt, bgp.MessageTypeString(t))
		}
		for k, cnt := range p.failed {
			send(bgpCodecDecodeErrorsDesc, cnt, k.String())
		}
		out <- prometheus.MustNewConstMetric(bgpCodecIncompleteTotalDesc, prometheus.CounterValue, float64(p.incomplete), peer)
	}
}

type peerObserver struct {
	collector *codecCollector
	peer      string
}

func (o *peerObserver) Decoded(msgType uint8) {
	o.collector.update(o.peer, func(p *peerCounters) { p.decoded[msgType]++ })
}

func (o *peerObserver) Encoded(msgType uint8) {
	o.collector.update(o.peer, func(p *peerCounters) { p.encoded[msgType]++ })
}

func (o *peerObserver) DecodeFailed(kind bgp.ErrorKind) {
	o.collector.update(o.peer, func(p *peerCounters) { p.failed[kind]++ })
}

func (o *peerObserver) Incomplete() {
	o.collector.update(o.peer, func(p *peerCounters) { p.incomplete++ })
}
