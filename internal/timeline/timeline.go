// Package timeline reconstructs per-correlation spans from a flat event
// list and derives GPU utilisation statistics. The sweep-line and
// interval-merge algorithms here are plain data-structure code with no
// natural library home; internal/quantile supplies the percentile
// statistics for TopKernels so this package isn't reimplementing that
// part on its own.
package timeline

import (
	"sort"

	"github.com/tracesmith/tracesmith/internal/event"
	"github.com/tracesmith/tracesmith/internal/quantile"
)

// Span is one reconstructed execution interval, keyed by correlation id.
type Span struct {
	CorrelationID event.CorrelationID
	DeviceID      event.DeviceID
	StreamID      event.StreamID
	Name          string
	Start         event.Timestamp
	End           event.Timestamp
}

// Duration returns End - Start.
func (s Span) Duration() event.Timestamp {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Timeline is the product of Build: spans plus the derived utilisation
// statistics.
type Timeline struct {
	Spans            []Span
	TotalDuration    event.Timestamp
	GPUUtilization   float64
	MaxConcurrentOps int
}

// Build reconstructs a Timeline from events, following its algorithm
// exactly: pair launch/complete by correlation id, fall back to a
// duration-based span for an unpaired complete, and a zero-length span for
// a bare instant.
func Build(events []event.Event) Timeline {
	type pending struct {
		launch *event.Event
		name   string
		device event.DeviceID
		stream event.StreamID
	}
	byCorr := make(map[event.CorrelationID]*pending)
	var order []event.CorrelationID

	var spans []Span
	get := func(id event.CorrelationID) *pending {
		p, ok := byCorr[id]
		if !ok {
			p = &pending{}
			byCorr[id] = p
			order = append(order, id)
		}
		return p
	}

	for i := range events {
		e := &events[i]
		switch {
		case e.Kind == event.KindKernelLaunch:
			p := get(e.CorrelationID)
			p.launch = e
			p.name = e.Name
			p.device = e.DeviceID
			p.stream = e.StreamID
		case e.Kind == event.KindKernelComplete:
			p := get(e.CorrelationID)
			if p.launch != nil {
				spans = append(spans, Span{
					CorrelationID: e.CorrelationID,
					DeviceID:      p.device,
					StreamID:      p.stream,
					Name:          p.name,
					Start:         p.launch.Timestamp,
					End:           e.Timestamp,
				})
				delete(byCorr, e.CorrelationID)
			} else if e.Duration != 0 {
				spans = append(spans, Span{
					CorrelationID: e.CorrelationID,
					DeviceID:      e.DeviceID,
					StreamID:      e.StreamID,
					Name:          e.Name,
					Start:         e.Timestamp,
					End:           e.Timestamp + e.Duration,
				})
			} else {
				spans = append(spans, Span{
					CorrelationID: e.CorrelationID,
					DeviceID:      e.DeviceID,
					StreamID:      e.StreamID,
					Name:          e.Name,
					Start:         e.Timestamp,
					End:           e.Timestamp,
				})
			}
		}
	}

	// Any launch that never saw a matching complete still gets a
	// zero-length span at its own timestamp: it is an instant from the
	// timeline's perspective, not a discarded event.
	for _, id := range order {
		p, ok := byCorr[id]
		if !ok || p.launch == nil {
			continue
		}
		spans = append(spans, Span{
			CorrelationID: id,
			DeviceID:      p.device,
			StreamID:      p.stream,
			Name:          p.name,
			Start:         p.launch.Timestamp,
			End:           p.launch.Timestamp,
		})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	tl := Timeline{Spans: spans}
	if len(spans) == 0 {
		return tl
	}

	minStart, maxEnd := spans[0].Start, spans[0].End
	for _, s := range spans {
		if s.Start < minStart {
			minStart = s.Start
		}
		if s.End > maxEnd {
			maxEnd = s.End
		}
	}
	tl.TotalDuration = maxEnd - minStart
	tl.GPUUtilization = gpuUtilization(spans, tl.TotalDuration)
	tl.MaxConcurrentOps = maxConcurrentOps(spans)
	return tl
}

// gpuUtilization computes the union of span intervals, merging overlaps,
// divided by totalDuration.
func gpuUtilization(spans []Span, totalDuration event.Timestamp) float64 {
	if totalDuration == 0 {
		return 0
	}
	intervals := make([]Span, len(spans))
	copy(intervals, spans)
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })

	var union uint64
	curStart, curEnd := intervals[0].Start, intervals[0].End
	for _, iv := range intervals[1:] {
		if iv.Start > curEnd {
			union += uint64(curEnd - curStart)
			curStart, curEnd = iv.Start, iv.End
			continue
		}
		if iv.End > curEnd {
			curEnd = iv.End
		}
	}
	union += uint64(curEnd - curStart)

	return float64(union) / float64(totalDuration)
}

// maxConcurrentOps sweeps span starts/ends, processing ends before starts
// at equal timestamps so instantaneous coincidences don't inflate the
// count.
func maxConcurrentOps(spans []Span) int {
	type point struct {
		ts    event.Timestamp
		delta int
		// order ensures ends (delta -1) sort before starts (delta +1) at
		// the same timestamp.
		order int
	}
	points := make([]point, 0, len(spans)*2)
	for _, s := range spans {
		points = append(points, point{ts: s.Start, delta: 1, order: 1})
		points = append(points, point{ts: s.End, delta: -1, order: 0})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].ts != points[j].ts {
			return points[i].ts < points[j].ts
		}
		return points[i].order < points[j].order
	})

	var cur, max int
	for _, p := range points {
		cur += p.delta
		if cur > max {
			max = cur
		}
	}
	return max
}

// KernelStat aggregates one kernel name's span durations across a
// timeline, the basis for TopKernels.
type KernelStat struct {
	Name    string
	Count   int
	TotalNS uint64
	P50NS   uint64
	P99NS   uint64
}

// TopKernels ranks kernels by total time spent, descending, returning at
// most n entries. Percentiles are computed with internal/quantile so this
// package doesn't reimplement percentile math that package already
// provides.
func TopKernels(tl Timeline, n int) []KernelStat {
	byName := make(map[string]*quantile.Quantile)
	order := []string{}
	for _, s := range tl.Spans {
		if s.Name == "" {
			continue
		}
		q, ok := byName[s.Name]
		if !ok {
			q = &quantile.Quantile{}
			byName[s.Name] = q
			order = append(order, s.Name)
		}
		q.Xs = append(q.Xs, float64(s.Duration()))
	}

	stats := make([]KernelStat, 0, len(order))
	for _, name := range order {
		q := byName[name]
		q.Sort()
		var total float64
		for _, x := range q.Xs {
			total += x
		}
		stats = append(stats, KernelStat{
			Name:    name,
			Count:   len(q.Xs),
			TotalNS: uint64(total),
			P50NS:   uint64(q.Percentile(0.5)),
			P99NS:   uint64(q.Percentile(0.99)),
		})
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].TotalNS > stats[j].TotalNS })
	if n > 0 && n < len(stats) {
		stats = stats[:n]
	}
	return stats
}
