/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"scriptturns/internal/script"
)

const meterName = "scriptturns"

// Instrument names.
const (
	MetricLines     = "scriptturns.lines"
	MetricCues      = "scriptturns.cues"
	MetricTurns     = "scriptturns.turns"
	MetricDocuments = "scriptturns.documents"
	MetricDuration  = "scriptturns.parse.duration"
)

// Document outcomes, reported as the "status" attribute of MetricDocuments.
const (
	StatusParsed  = "parsed"
	StatusMissing = "missing"
	StatusNoCues  = "no_cues"
	StatusGated   = "gated"
	StatusFailed  = "failed"
)

var parseBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5}

// Metrics holds the instruments a batch run reports to. A nil *Metrics is a no-op.
type Metrics struct {
	// Lines counts classified lines by "kind".
	Lines metric.Int64Counter
	// Cues counts character cues by "document".
	Cues metric.Int64Counter
	// Turns counts emitted turns by "document".
	Turns metric.Int64Counter
	// Documents counts documents by "status".
	Documents metric.Int64Counter
	// ParseDuration tracks the time spent in script.Parse per document.
	ParseDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}
	if met.Lines, err = m.Int64Counter(MetricLines,
		metric.WithDescription("Screenplay lines classified, by line kind."),
		metric.WithUnit("{line}"),
	); err != nil {
		return nil, err
	}
	if met.Cues, err = m.Int64Counter(MetricCues,
		metric.WithDescription("Character cues detected, by document."),
		metric.WithUnit("{cue}"),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter(MetricTurns,
		metric.WithDescription("Dialogue turns emitted, by document."),
		metric.WithUnit("{turn}"),
	); err != nil {
		return nil, err
	}
	if met.Documents, err = m.Int64Counter(MetricDocuments,
		metric.WithDescription("Documents processed, by status."),
		metric.WithUnit("{document}"),
	); err != nil {
		return nil, err
	}
	if met.ParseDuration, err = m.Float64Histogram(MetricDuration,
		metric.WithDescription("Time spent segmenting one document."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(parseBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordDocument reports the outcome of parsing one document.
func (m *Metrics) RecordDocument(ctx context.Context, document string, res script.Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	for kind, n := range res.Stats.Kinds {
		if n > 0 {
			m.Lines.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind.String())))
		}
	}
	doc := metric.WithAttributes(attribute.String("document", document))
	m.Cues.Add(ctx, int64(res.Stats.Kinds[script.KindCharacterCue]), doc)
	m.Turns.Add(ctx, int64(len(res.Turns)), doc)
	m.ParseDuration.Record(ctx, elapsed.Seconds())
	status := StatusParsed
	switch {
	case !res.Stats.Started:
		status = StatusGated
	case res.Stats.Kinds[script.KindCharacterCue] == 0:
		status = StatusNoCues
	}
	m.DocumentStatus(ctx, status)
}

// DocumentStatus counts a document outcome without parse statistics.
func (m *Metrics) DocumentStatus(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Documents.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// NewManualProvider returns a meter provider whose data is pulled on demand.
func NewManualProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

// Sample is one integer counter data point.
type Sample struct {
	Name  string
	Attrs string // "k=v,k=v", sorted
	Value int64
}

// Snapshot collects reader and flattens every int64 sum into samples sorted by
// name then attributes. Histograms are reported as their count.
func Snapshot(ctx context.Context, reader sdkmetric.Reader) ([]Sample, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	var out []Sample
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: md.Name, Attrs: attrString(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: md.Name, Attrs: attrString(dp.Attributes), Value: int64(dp.Count)})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attrs < out[j].Attrs
	})
	return out, nil
}

func attrString(set attribute.Set) string {
	kvs := set.ToSlice()
	parts := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}
	return strings.Join(parts, ",")
}
