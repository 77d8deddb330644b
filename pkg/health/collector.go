package health

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/audio-shm/pkg/ring"
)

const namespace = "vdap"

type collector struct {
	r *ring.Ring

	valid      *prometheus.Desc
	capacity   *prometheus.Desc
	used       *prometheus.Desc
	free       *prometheus.Desc
	head       *prometheus.Desc
	tail       *prometheus.Desc
	sampleRate *prometheus.Desc
	channels   *prometheus.Desc
}

// NewCollector returns a collector that reads the ring header on every scrape.
// Each series carries a "region" label set to name.
func NewCollector(r *ring.Ring, name string) prometheus.Collector {
	labels := prometheus.Labels{"region": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "ring", metric), help, nil, labels)
	}
	return &collector{
		r:          r,
		valid:      desc("valid", "1 when the region magic is published."),
		capacity:   desc("capacity_bytes", "Usable size of the data area."),
		used:       desc("used_bytes", "Bytes written and not yet consumed."),
		free:       desc("free_bytes", "Bytes the producer may write without overwriting."),
		head:       desc("head_offset", "Producer offset into the data area."),
		tail:       desc("tail_offset", "Consumer offset into the data area."),
		sampleRate: desc("sample_rate_hz", "Advertised sample rate."),
		channels:   desc("channels", "Channels in the advertised channel mask."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.valid
	ch <- c.capacity
	ch <- c.used
	ch <- c.free
	ch <- c.head
	ch <- c.tail
	ch <- c.sampleRate
	ch <- c.channels
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.r.Snapshot()
	valid := 0.0
	if st.Magic == ring.Magic {
		valid = 1
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	gauge(c.valid, valid)
	gauge(c.capacity, float64(st.Capacity))
	gauge(c.used, float64(st.Used))
	gauge(c.free, float64(st.Free))
	gauge(c.head, float64(st.Head))
	gauge(c.tail, float64(st.Tail))
	gauge(c.sampleRate, float64(st.Format.SampleRate))
	gauge(c.channels, float64(st.Format.ChannelMask.Count()))
}
