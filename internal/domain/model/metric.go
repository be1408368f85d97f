// Package model contains the documents passed between the pipeline, the engines and the store.
package model

import (
	"bytes"
	"fmt"
	"math"

	json "github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/domain/gpt"
)

// Metric is a single metric value. Which field is meaningful depends on Kind.
// It encodes to a bare JSON number, string or array.
type Metric struct {
	Kind  gpt.MetricKind
	Num   float64
	Str   string
	Graph []float64
}

func IntMetric(v int) Metric         { return Metric{Kind: gpt.Integer, Num: float64(v)} }
func DecMetric(v float64) Metric     { return Metric{Kind: gpt.Decimal, Num: v} }
func EnumMetric(v string) Metric     { return Metric{Kind: gpt.Enum, Str: v} }
func GraphMetric(v []float64) Metric { return Metric{Kind: gpt.Graph, Graph: v} }

// Int returns the value truncated to an int.
func (m Metric) Int() int { return int(m.Num) }

// Numeric reports whether the metric carries a number.
func (m Metric) Numeric() bool { return m.Kind == gpt.Integer || m.Kind == gpt.Decimal }

func (m Metric) String() string {
	switch m.Kind {
	case gpt.Enum:
		return m.Str
	case gpt.Graph:
		return fmt.Sprintf("%v", m.Graph)
	case gpt.Integer:
		return fmt.Sprintf("%d", int64(m.Num))
	default:
		return fmt.Sprintf("%g", m.Num)
	}
}

func (m Metric) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case gpt.Enum:
		return json.Marshal(m.Str)
	case gpt.Graph:
		return json.Marshal(m.Graph)
	case gpt.Integer:
		return json.Marshal(int64(m.Num))
	default:
		return json.Marshal(m.Num)
	}
}

// UnmarshalJSON infers the kind from the JSON type. Whole numbers decode as INTEGER.
func (m *Metric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("metric: null value")
	}
	switch b[0] {
	case '"':
		m.Kind = gpt.Enum
		return json.Unmarshal(b, &m.Str)
	case '[':
		m.Kind = gpt.Graph
		return json.Unmarshal(b, &m.Graph)
	default:
		if err := json.Unmarshal(b, &m.Num); err != nil {
			return err
		}
		m.Kind = gpt.Decimal
		if m.Num == math.Trunc(m.Num) && !bytes.ContainsAny(b, ".eE") {
			m.Kind = gpt.Integer
		}
		return nil
	}
}

// Metrics is a set of named metric values.
type Metrics map[string]Metric

// Num returns a numeric metric.
func (ms Metrics) Num(name string) (float64, bool) {
	m, ok := ms[name]
	if !ok || !m.Numeric() {
		return 0, false
	}
	return m.Num, true
}

// Enum returns an enum metric.
func (ms Metrics) Enum(name string) (string, bool) {
	m, ok := ms[name]
	if !ok || m.Kind != gpt.Enum {
		return "", false
	}
	return m.Str, true
}

// Clone returns a shallow copy.
func (ms Metrics) Clone() Metrics {
	out := make(Metrics, len(ms))
	for k, v := range ms {
		out[k] = v
	}
	return out
}
