// Package promparse reads a Prometheus text exposition (a /metrics body) and
// offers label-aware lookups over it.
//
// Usage:
//
//	m, err := promparse.Parse(resp.Body)
//	subs := m.Int("emocircle_ws_subscribers")
//	joins := m.IntWithLabel("emocircle_domain_events_total", "event", "participant_join")
//	requests := m.SumInt("emocircle_http_requests_total")
package promparse

import (
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// entry is one sample of a family: its labels and value.
type entry struct {
	labels map[string]string
	value  float64
}

// Metrics holds parsed samples by family name. A family may carry many label
// combinations.
type Metrics struct {
	data map[string][]entry
}

// Parse reads the text format. Counters, gauges and untyped samples keep their
// value; histograms and summaries are reduced to their sample count.
func Parse(r io.Reader) (*Metrics, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %w", err)
	}

	m := &Metrics{data: make(map[string][]entry, len(families))}
	for name, family := range families {
		for _, metric := range family.GetMetric() {
			m.data[name] = append(m.data[name], entry{
				labels: labelMap(metric.GetLabel()),
				value:  sampleValue(family.GetType(), metric),
			})
		}
	}
	return m, nil
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	labels := make(map[string]string, len(pairs))
	for _, p := range pairs {
		labels[p.GetName()] = p.GetValue()
	}
	return labels
}

func sampleValue(kind dto.MetricType, metric *dto.Metric) float64 {
	switch kind {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(metric.GetHistogram().GetSampleCount())
	case dto.MetricType_SUMMARY:
		return float64(metric.GetSummary().GetSampleCount())
	default:
		return metric.GetUntyped().GetValue()
	}
}

// Float64 returns the first sample of name, or 0.
func (m *Metrics) Float64(name string) float64 {
	entries := m.data[name]
	if len(entries) == 0 {
		return 0
	}
	return entries[0].value
}

// Int is Float64 truncated.
func (m *Metrics) Int(name string) int {
	return int(m.Float64(name))
}

// SumInt adds every label combination of name.
func (m *Metrics) SumInt(name string) int {
	var total float64
	for _, e := range m.data[name] {
		total += e.value
	}
	return int(total)
}

// Float64WithLabel returns the first sample of name whose labelKey equals
// labelValue, or 0.
func (m *Metrics) Float64WithLabel(name, labelKey, labelValue string) float64 {
	for _, e := range m.data[name] {
		if e.labels[labelKey] == labelValue {
			return e.value
		}
	}
	return 0
}

// IntWithLabel is Float64WithLabel truncated.
func (m *Metrics) IntWithLabel(name, labelKey, labelValue string) int {
	return int(m.Float64WithLabel(name, labelKey, labelValue))
}

// Has reports whether name has at least one sample.
func (m *Metrics) Has(name string) bool {
	return len(m.data[name]) > 0
}
