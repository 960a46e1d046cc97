package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newslens/newslens/pkg/budget"
	"github.com/newslens/newslens/pkg/config"
	"github.com/newslens/newslens/pkg/models"
)

// EWMA smoothing factor for the bucketed signal.
const ewmaAlpha = 0.3

// Slope is measured over this many trailing buckets.
const slopeBuckets = 5

// Driver is one explanation for the forecast, grounded in evidence.
type Driver struct {
	Text string               `json:"text"`
	Refs []models.EvidenceRef `json:"refs"`
}

// ForecastResult is the typed payload of the trend_forecaster agent.
type ForecastResult struct {
	Direction string    `json:"direction"` // up | flat | down
	Slope     float64   `json:"slope"`
	Buckets   []float64 `json:"buckets"`
	Smoothed  []float64 `json:"smoothed"`
	CILo      float64   `json:"ci_lo"`
	CIHi      float64   `json:"ci_hi"`
	Drivers   []Driver  `json:"drivers"`
}

// ForecastAgent turns document dates into a daily signal, smooths it
// with an EWMA, and reads direction from the smoothed slope. The model
// only narrates drivers; every number is computed here.
type ForecastAgent struct{}

func (a *ForecastAgent) Name() string       { return "trend_forecaster" }
func (a *ForecastAgent) ParallelSafe() bool { return true }

type modelDrivers struct {
	Drivers []struct {
		Text   string `json:"text"`
		DocIdx []int  `json:"doc_idx"`
	} `json:"drivers"`
}

func (a *ForecastAgent) Run(ctx context.Context, in Input, router ModelCaller, ledger *budget.Ledger) (*Output, error) {
	buckets := bucketByDay(in.Docs)
	if len(buckets) == 0 {
		return nil, fmt.Errorf("no dated documents to forecast from")
	}
	smoothed := ewma(buckets, ewmaAlpha)
	slope := trailingSlope(smoothed, slopeBuckets)
	direction := slopeDirection(slope)
	lo, hi := confidenceInterval(buckets, smoothed)

	result := &ForecastResult{
		Direction: direction,
		Slope:     slope,
		Buckets:   buckets,
		Smoothed:  smoothed,
		CILo:      lo,
		CIHi:      hi,
	}

	prompt := fmt.Sprintf(`Coverage of %q is trending %s. Name 3 to 5 concrete drivers of this trend visible in the snippets, each citing snippet indices.
Return ONLY JSON: {"drivers":[{"text":"...","doc_idx":[0]}]}`, in.Query, direction)

	completion, meta, err := router.Call(ctx, router.RouteFor(config.TaskTrend), prompt, in.Docs, 768, ledger)
	if err != nil {
		return nil, err
	}
	var raw modelDrivers
	if err := decodeModelJSON(completion.Text, &raw); err != nil {
		return nil, fmt.Errorf("forecast output: %w", err)
	}
	for _, d := range raw.Drivers {
		if d.Text == "" {
			continue
		}
		var refs []models.EvidenceRef
		for _, i := range d.DocIdx {
			if i >= 0 && i < len(in.Docs) {
				refs = append(refs, models.RefFromDocument(in.Docs[i]))
			}
		}
		if len(refs) == 0 {
			refs = refsFor(in.Docs, 1)
		}
		result.Drivers = append(result.Drivers, Driver{Text: d.Text, Refs: refs})
		if len(result.Drivers) == 5 {
			break
		}
	}
	if len(result.Drivers) < 3 {
		return nil, fmt.Errorf("forecast produced %d drivers, need at least 3", len(result.Drivers))
	}

	insight := models.Insight{
		Type:         models.InsightHypothesis,
		Text:         models.Truncate(fmt.Sprintf("Coverage volume is trending %s (slope %.2f, CI [%.2f, %.2f]).", direction, slope, lo, hi), models.MaxInsightLen),
		EvidenceRefs: refsFor(in.Docs, 3),
	}

	return &Output{
		Agent:    a.Name(),
		Insights: []models.Insight{insight},
		Result:   result,
		Model:    meta.Model,
	}, nil
}

// bucketByDay counts documents per calendar day across the observed
// span, zero-filling empty days so the signal is evenly spaced.
func bucketByDay(docs []models.Document) []float64 {
	counts := make(map[string]int)
	var days []string
	for _, d := range docs {
		if _, err := time.Parse("2006-01-02", d.PublishedDate); err != nil {
			continue
		}
		if counts[d.PublishedDate] == 0 {
			days = append(days, d.PublishedDate)
		}
		counts[d.PublishedDate]++
	}
	if len(days) == 0 {
		return nil
	}
	sort.Strings(days)

	first, _ := time.Parse("2006-01-02", days[0])
	last, _ := time.Parse("2006-01-02", days[len(days)-1])
	var buckets []float64
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		buckets = append(buckets, float64(counts[day.Format("2006-01-02")]))
	}
	return buckets
}

// ewma smooths the signal with exponential weighting.
func ewma(signal []float64, alpha float64) []float64 {
	out := make([]float64, len(signal))
	for i, x := range signal {
		if i == 0 {
			out[i] = x
			continue
		}
		out[i] = alpha*x + (1-alpha)*out[i-1]
	}
	return out
}

// trailingSlope is the mean first difference over the last n smoothed
// buckets, a cheap linear slope estimate.
func trailingSlope(smoothed []float64, n int) float64 {
	if len(smoothed) < 2 {
		return 0
	}
	start := len(smoothed) - n
	if start < 0 {
		start = 0
	}
	window := smoothed[start:]
	return (window[len(window)-1] - window[0]) / float64(len(window)-1)
}

func slopeDirection(slope float64) string {
	switch {
	case slope > 0.1:
		return "up"
	case slope < -0.1:
		return "down"
	default:
		return "flat"
	}
}

// confidenceInterval derives CI width from the inverse signal-to-noise
// ratio of the raw buckets around the smoothed curve, clamped to
// [0.1, 0.9], centered on the normalized final level. The interval is
// shifted to fit inside [0,1] so the clamped width survives at the
// edges.
func confidenceInterval(buckets, smoothed []float64) (lo, hi float64) {
	var mean float64
	for _, b := range buckets {
		mean += b
	}
	mean /= float64(len(buckets))

	var noise float64
	for i := range buckets {
		d := buckets[i] - smoothed[i]
		noise += d * d
	}
	noise = math.Sqrt(noise / float64(len(buckets)))

	width := 0.1
	if mean > 0 {
		width = noise / mean
	}
	if width < 0.1 {
		width = 0.1
	}
	if width > 0.9 {
		width = 0.9
	}

	peak := buckets[0]
	for _, b := range buckets {
		if b > peak {
			peak = b
		}
	}
	center := 0.5
	if peak > 0 {
		center = smoothed[len(smoothed)-1] / peak
	}
	lo = center - width/2
	hi = center + width/2
	if lo < 0 {
		hi -= lo
		lo = 0
	}
	if hi > 1 {
		lo -= hi - 1
		hi = 1
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}
