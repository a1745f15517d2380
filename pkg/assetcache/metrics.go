// metrics.go mirrors the teacher cache package's metricsSink abstraction:
// a no-op sink by default, swapped for a Prometheus-backed one when the
// caller opts in via WithMetrics.
//
// © 2025 arena-cache authors. MIT License.
package assetcache

import "github.com/prometheus/client_golang/prometheus"

type metricsSink interface {
	incRead(domain string)
	incWrite(domain string)
	incDelete(domain string)
	incReadError(domain string)
	incWriteError(domain string)
	setDomainBlobBytes(domain string, bytes uint64)
}

type noopMetrics struct{}

func (noopMetrics) incRead(string)                  {}
func (noopMetrics) incWrite(string)                 {}
func (noopMetrics) incDelete(string)                {}
func (noopMetrics) incReadError(string)             {}
func (noopMetrics) incWriteError(string)            {}
func (noopMetrics) setDomainBlobBytes(string, uint64) {}

type promMetrics struct {
	reads       *prometheus.CounterVec
	writes      *prometheus.CounterVec
	deletes     *prometheus.CounterVec
	readErrors  *prometheus.CounterVec
	writeErrors *prometheus.CounterVec
	blobBytes   *prometheus.GaugeVec
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	label := []string{"domain"}
	pm := &promMetrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetcache", Name: "reads_total", Help: "Number of successful reads.",
		}, label),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetcache", Name: "writes_total", Help: "Number of successful writes.",
		}, label),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetcache", Name: "deletes_total", Help: "Number of successful deletes.",
		}, label),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetcache", Name: "read_errors_total", Help: "Number of failed reads.",
		}, label),
		writeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetcache", Name: "write_errors_total", Help: "Number of failed writes.",
		}, label),
		blobBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "assetcache", Name: "domain_blob_bytes", Help: "Total reserved blob bytes per domain.",
		}, label),
	}
	reg.MustRegister(pm.reads, pm.writes, pm.deletes, pm.readErrors, pm.writeErrors, pm.blobBytes)
	return pm
}

func (m *promMetrics) incRead(domain string)       { m.reads.WithLabelValues(domain).Inc() }
func (m *promMetrics) incWrite(domain string)      { m.writes.WithLabelValues(domain).Inc() }
func (m *promMetrics) incDelete(domain string)     { m.deletes.WithLabelValues(domain).Inc() }
func (m *promMetrics) incReadError(domain string)  { m.readErrors.WithLabelValues(domain).Inc() }
func (m *promMetrics) incWriteError(domain string) { m.writeErrors.WithLabelValues(domain).Inc() }
func (m *promMetrics) setDomainBlobBytes(domain string, bytes uint64) {
	m.blobBytes.WithLabelValues(domain).Set(float64(bytes))
}

func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
