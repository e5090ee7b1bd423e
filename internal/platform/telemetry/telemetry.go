// Package telemetry records HTTP server metrics and schedule admission
// outcomes and serves them in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "doctor-server"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram keeps non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
	// above every boundary: only the +Inf bucket sees it
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := make([]int64, len(h.bucketCounts))
	copy(raw, h.bucketCounts)
	h.mu.Unlock()

	var running int64
	for i, c := range raw {
		running += c
		raw[i] = running
	}
	return raw
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(next)) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Keyed stores
// ---------------------------------------------------------------------------

// labelSep joins label values into a store key.
const labelSep = "|"

func labelsKey(values ...string) string {
	return strings.Join(values, labelSep)
}

type histogramStore struct {
	mu         sync.RWMutex
	boundaries []float64
	items      map[string]*histogram
}

func newHistogramStore(boundaries []float64) *histogramStore {
	return &histogramStore{boundaries: boundaries, items: make(map[string]*histogram)}
}

func (s *histogramStore) get(key string) *histogram {
	s.mu.RLock()
	h, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		return h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.items[key]; !ok {
		h = newHistogram(s.boundaries)
		s.items[key] = h
	}
	return h
}

func (s *histogramStore) snapshot() map[string]*histogram {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]*histogram, len(s.items))
	for k, v := range s.items {
		cp[k] = v
	}
	return cp
}

type counterStore struct {
	mu    sync.RWMutex
	items map[string]*int64
}

func newCounterStore() *counterStore {
	return &counterStore{items: make(map[string]*int64)}
}

func (s *counterStore) add(key string, delta int64) {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if p, ok = s.items[key]; !ok {
			p = new(int64)
			s.items[key] = p
		}
		s.mu.Unlock()
	}
	atomic.AddInt64(p, delta)
}

func (s *counterStore) get(key string) int64 {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

func (s *counterStore) snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]int64, len(s.items))
	for k, p := range s.items {
		cp[k] = atomic.LoadInt64(p)
	}
	return cp
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// durationBuckets are request duration boundaries in seconds.
var durationBuckets = []float64{
	0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
}

// GaugeFunc is sampled on every scrape.
type GaugeFunc func() int64

type gauge struct {
	name string
	help string
	fn   GaugeFunc
}

// Provider owns every metric the service exports.
type Provider struct {
	cfg Config

	requests       *histogramStore // method|route|status
	activeRequests int64
	admissions     *counterStore // op|outcome

	gaugesMu sync.RWMutex
	gauges   []gauge
}

func NewProvider(cfg Config) *Provider {
	cfg.applyDefaults()
	return &Provider{
		cfg:        cfg,
		requests:   newHistogramStore(durationBuckets),
		admissions: newCounterStore(),
	}
}

// RegisterGauge adds a gauge whose value is read from fn at scrape time.
func (p *Provider) RegisterGauge(name, help string, fn GaugeFunc) {
	p.gaugesMu.Lock()
	defer p.gaugesMu.Unlock()
	p.gauges = append(p.gauges, gauge{name: name, help: help, fn: fn})
}

// ObserveAdmission counts one create or edit decision of the schedule
// service.
func (p *Provider) ObserveAdmission(op, outcome string) {
	p.admissions.add(labelsKey(op, outcome), 1)
}

// AdmissionCount returns the number of decisions recorded for op and outcome.
func (p *Provider) AdmissionCount(op, outcome string) int64 {
	return p.admissions.get(labelsKey(op, outcome))
}

// RequestCount returns how many requests completed for the route pattern
// with the given status.
func (p *Provider) RequestCount(method, route string, status int) int64 {
	h, ok := p.requests.snapshot()[labelsKey(method, route, strconv.Itoa(status))]
	if !ok {
		return 0
	}
	return h.Count()
}

// Middleware times every request and labels it with the route pattern, so
// path parameters do not explode the label set.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&p.activeRequests, 1)
			defer atomic.AddInt64(&p.activeRequests, -1)

			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error now so the status is final
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			p.requests.get(labelsKey(c.Request().Method, route, status)).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves /metrics.
func (p *Provider) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		fmt.Fprintf(&b, "# HELP service_info Build information.\n# TYPE service_info gauge\n")
		fmt.Fprintf(&b, "service_info{service=%q,version=%q,environment=%q} 1\n\n",
			p.cfg.ServiceName, p.cfg.ServiceVersion, p.cfg.Environment)

		writeHistograms(&b, "http_server_request_duration_seconds",
			"Duration of HTTP requests in seconds.",
			[]string{"method", "route", "status_code"}, p.requests)

		b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&p.activeRequests))

		b.WriteString("# HELP schedule_admissions_total Schedule create and edit decisions by outcome.\n")
		b.WriteString("# TYPE schedule_admissions_total counter\n")
		counts := p.admissions.snapshot()
		for _, key := range sortedKeys(counts) {
			parts := strings.SplitN(key, labelSep, 2)
			if len(parts) != 2 {
				continue
			}
			fmt.Fprintf(&b, "schedule_admissions_total{op=%q,outcome=%q} %d\n", parts[0], parts[1], counts[key])
		}
		b.WriteByte('\n')

		p.gaugesMu.RLock()
		gauges := append([]gauge(nil), p.gauges...)
		p.gaugesMu.RUnlock()
		for _, g := range gauges {
			fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", g.name, g.help, g.name, g.name, g.fn())
		}

		return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
	}
}

// ---------------------------------------------------------------------------
// Exposition helpers
// ---------------------------------------------------------------------------

func writeHistograms(b *strings.Builder, name, help string, labelNames []string, store *histogramStore) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s histogram\n", name)

	snap := store.snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := strings.Split(key, labelSep)
		if len(values) != len(labelNames) {
			continue
		}
		pairs := make([]string, len(values))
		for i, v := range values {
			pairs[i] = fmt.Sprintf("%s=%q", labelNames[i], v)
		}
		writeHistogram(b, name, strings.Join(pairs, ","), snap[key])
	}
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	total := h.Count()

	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
