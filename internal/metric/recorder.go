package metric

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Recorder is an in-memory Client for tests. Counts are keyed by metric name
// plus sorted tags, e.g. "classifier.stage|outcome:failure,stage:model".
type Recorder struct {
	*statsd.NoOpClient

	mu      sync.Mutex
	counts  map[string]int64
	timings map[string]int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		NoOpClient: &statsd.NoOpClient{},
		counts:     make(map[string]int64),
		timings:    make(map[string]int),
	}
}

func recorderKey(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return name + "|" + strings.Join(sorted, ",")
}

func (r *Recorder) Count(name string, value int64, tags []string, rate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[recorderKey(name, tags)] += value
	return nil
}

func (r *Recorder) Incr(name string, tags []string, rate float64) error {
	return r.Count(name, 1, tags, rate)
}

func (r *Recorder) Decr(name string, tags []string, rate float64) error {
	return r.Count(name, -1, tags, rate)
}

func (r *Recorder) Timing(name string, value time.Duration, tags []string, rate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings[name]++
	return nil
}

// Counter returns the accumulated count for name with exactly the given tags.
func (r *Recorder) Counter(name string, tags ...Tag) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[recorderKey(name, BuildTag(tags...))]
}

// Timings returns how many timings were sent for name.
func (r *Recorder) Timings(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timings[name]
}
