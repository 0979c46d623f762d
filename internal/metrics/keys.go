package metrics

import "fmt"

const (
	// KeyPrefixMetrics is the prefix for all metrics keys
	KeyPrefixMetrics = "metrics"
	// KeyPrefixCompleted is the prefix for completed job counters
	KeyPrefixCompleted = "completed"
	// KeyPrefixFailed is the prefix for failed job counters
	KeyPrefixFailed = "failed"
	// KeyPrefixScored is the prefix for scored candidate counters
	KeyPrefixScored = "scored"
	// KeyPrefixPassed is the prefix for passed candidate counters
	KeyPrefixPassed = "passed"
	// KeyRecentJobs is the Redis key for the recent jobs list
	KeyRecentJobs = "metrics:recent:jobs"
	// KeyLastCompleted is the Redis key for the last completion timestamp
	KeyLastCompleted = "metrics:last_completed"
	// MaxRecentJobs is the maximum number of recent jobs to keep
	MaxRecentJobs = 100
	// MetricsTTLDays is the TTL in days for metrics counters
	MetricsTTLDays = 30
	// RecentJobsTTLDays is the TTL in days for the recent jobs list
	RecentJobsTTLDays = 7
)

// RedisKeys provides methods to build Redis keys consistently
type RedisKeys struct {
	prefix string
}

// NewRedisKeys creates a new RedisKeys instance
func NewRedisKeys(prefix string) *RedisKeys {
	return &RedisKeys{prefix: prefix}
}

// Completed returns the Redis key for the completed counter for a search method
func (k *RedisKeys) Completed(method string) string {
	return fmt.Sprintf("%s:%s:%s", k.prefix, KeyPrefixCompleted, method)
}

// Failed returns the Redis key for the failed counter for a search method
func (k *RedisKeys) Failed(method string) string {
	return fmt.Sprintf("%s:%s:%s", k.prefix, KeyPrefixFailed, method)
}

// Scored returns the Redis key for the scored candidates counter for a search method
func (k *RedisKeys) Scored(method string) string {
	return fmt.Sprintf("%s:%s:%s", k.prefix, KeyPrefixScored, method)
}

// Passed returns the Redis key for the passed candidates counter for a search method
func (k *RedisKeys) Passed(method string) string {
	return fmt.Sprintf("%s:%s:%s", k.prefix, KeyPrefixPassed, method)
}
