// Package metric sends counters and timings to a DogStatsD agent.
package metric

import (
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Metric names.
const (
	ClassifierStage   = "classifier.stage"
	ClassifierPredict = "classifier.predict"
	ClassifierCache   = "classifier.cache"
	RoundsResolved    = "game.rounds"
	APIRequestCount   = "api.request_count"
	APIRequestLatency = "api.request_latency"
)

// Tag names.
const (
	TagService = "service"
	TagStage   = "stage"
	TagOutcome = "outcome"
	TagResult  = "result"
	TagPath    = "path"
	TagMethod  = "method"
	TagStatus  = "http_status_code"

	TagValueSuccess = "success"
	TagValueFailure = "failure"
	TagValueHit     = "hit"
	TagValueMiss    = "miss"
)

// Client is the subset of the statsd client used by this module.
type Client = statsd.ClientInterface

// New returns a statsd client for addr. An empty addr yields a client that
// discards everything.
func New(addr, service string) (Client, error) {
	if addr == "" {
		return &statsd.NoOpClient{}, nil
	}
	return statsd.New(addr, statsd.WithTags(BuildTag(NewTag(TagService, service))))
}

// Nop returns a client that discards everything.
func Nop() Client {
	return &statsd.NoOpClient{}
}

type Tag struct {
	Name  string
	Value string
}

func NewTag(name, value string) Tag {
	return Tag{
		Name:  name,
		Value: value,
	}
}

// BuildTag renders tags in name:value form.
func BuildTag(tags ...Tag) []string {
	allTags := make([]string, 0, len(tags))
	for _, tag := range tags {
		allTags = append(allTags, TagAsString(tag.Name, tag.Value))
	}
	return allTags
}

// normalizeTagValue replaces characters DogStatsD treats as separators.
func normalizeTagValue(value string) string {
	problematicChars := []string{":", " ", "\\", ",", "|", "@", "#"}
	normalized := value
	for _, char := range problematicChars {
		normalized = strings.ReplaceAll(normalized, char, "_")
	}
	return normalized
}

func TagAsString(name string, value string) string {
	return name + ":" + normalizeTagValue(value)
}
