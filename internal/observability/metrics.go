package observability

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Counter represents a monotonic counter metric
type Counter struct {
	name  string
	help  string
	mu    sync.RWMutex
	value float64
}

// NewCounter creates a new counter metric
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

// Inc increments the counter by 1
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds the given value to the counter
func (c *Counter) Add(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += delta
}

// Value returns the current counter value
func (c *Counter) Value() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *Counter) write(b *strings.Builder) {
	fmt.Fprintf(b, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(b, "# TYPE %s counter\n", c.name)
	fmt.Fprintf(b, "%s %g\n", c.name, c.Value())
}

// Histogram tracks the distribution of observed values
type Histogram struct {
	name    string
	help    string
	buckets []float64
	mu      sync.RWMutex
	counts  []uint64
	sum     float64
	count   uint64
}

// NewHistogram creates a new histogram metric
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	return &Histogram{
		name:    name,
		help:    help,
		buckets: sorted,
		counts:  make([]uint64, len(sorted)),
	}
}

// Observe adds an observation to the histogram
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++
	for i, bucket := range h.buckets {
		if value <= bucket {
			h.counts[i]++
		}
	}
}

// Count returns the total count of observations
func (h *Histogram) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Histogram) write(b *strings.Builder) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	fmt.Fprintf(b, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(b, "# TYPE %s histogram\n", h.name)
	for i, bucket := range h.buckets {
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"} %d\n", h.name, bucket, h.counts[i])
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
	fmt.Fprintf(b, "%s_sum %g\n", h.name, h.sum)
	fmt.Fprintf(b, "%s_count %d\n", h.name, h.count)
}

// AnalysisMetrics counts analysis activity across runs.
type AnalysisMetrics struct {
	Runs            *Counter
	RunFailures     *Counter
	Languages       *Counter
	LanguageErrors  *Counter
	ResultsPruned   *Counter
	RunDuration     *Histogram
	ProviderRetries *Counter
}

// NewAnalysisMetrics creates the analysis metric set
func NewAnalysisMetrics() *AnalysisMetrics {
	return &AnalysisMetrics{
		Runs:            NewCounter("l10n_analysis_runs_total", "Site analyses started"),
		RunFailures:     NewCounter("l10n_analysis_run_failures_total", "Site analyses aborted before producing results"),
		Languages:       NewCounter("l10n_analysis_languages_total", "Target languages analyzed"),
		LanguageErrors:  NewCounter("l10n_analysis_language_errors_total", "Target languages whose analysis failed"),
		ResultsPruned:   NewCounter("l10n_analysis_results_pruned_total", "Stored results removed by retention"),
		RunDuration:     NewHistogram("l10n_analysis_run_duration_seconds", "Wall time of a site analysis", nil),
		ProviderRetries: NewCounter("l10n_provider_retries_total", "Provider requests retried after a transient failure"),
	}
}

// Export renders the metrics in the Prometheus text format
func (m *AnalysisMetrics) Export() string {
	var b strings.Builder
	m.Runs.write(&b)
	m.RunFailures.write(&b)
	m.Languages.write(&b)
	m.LanguageErrors.write(&b)
	m.ResultsPruned.write(&b)
	m.ProviderRetries.write(&b)
	m.RunDuration.write(&b)
	return b.String()
}

// Handler serves Export over HTTP
func (m *AnalysisMetrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(m.Export()))
	}
}
