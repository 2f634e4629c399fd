package classifier

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto"

	"github.com/ayusman/suit/internal/metric"
	"github.com/ayusman/suit/internal/vision"
)

// Classify is satisfied by Classifier and Cached.
type Classify interface {
	Predict(img vision.Image) Result
}

// Cached remembers results for identical images.
type Cached struct {
	next    Classify
	cache   *ristretto.Cache
	metrics metric.Client
}

// NewCached wraps next with a cache holding up to size results.
func NewCached(next Classify, size int64, metrics metric.Client) (*Cached, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * size,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = metric.Nop()
	}
	return &Cached{next: next, cache: cache, metrics: metrics}, nil
}

// Predict returns the cached result for img or classifies it.
// Random fallbacks are not cached.
func (c *Cached) Predict(img vision.Image) Result {
	key, ok := imageKey(img)
	if !ok {
		return c.next.Predict(img)
	}

	if v, found := c.cache.Get(key); found {
		if r, ok := v.(Result); ok {
			c.record(metric.TagValueHit)
			return r
		}
	}
	c.record(metric.TagValueMiss)

	r := c.next.Predict(img)
	if r.Source != SourceRandom {
		c.cache.Set(key, r, 1)
		c.cache.Wait()
	}
	return r
}

// Close stops the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}

func (c *Cached) record(result string) {
	_ = c.metrics.Incr(metric.ClassifierCache, metric.BuildTag(metric.NewTag(metric.TagResult, result)), 1)
}

// imageKey hashes the pixel data together with geometry and channel order.
func imageKey(img vision.Image) (uint64, bool) {
	if img.Empty() || !img.Mat.IsContinuous() {
		return 0, false
	}

	var header [32]byte
	binary.LittleEndian.PutUint64(header[0:], uint64(img.Width()))
	binary.LittleEndian.PutUint64(header[8:], uint64(img.Height()))
	binary.LittleEndian.PutUint64(header[16:], uint64(img.Mat.Type()))
	binary.LittleEndian.PutUint64(header[24:], uint64(img.Order))

	d := xxhash.New()
	_, _ = d.Write(header[:])
	_, _ = d.Write(img.Mat.ToBytes())
	return d.Sum64(), true
}
