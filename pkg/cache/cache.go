// Package cache stores serialized plans and orchestration results.
//
// Two backends implement [Cache]: [FileCache] for the CLI and [RedisCache]
// for the HTTP server. [NullCache] disables caching. Keys are produced by a
// [Keyer] so that equal inputs always map to the same entry:
//
//	c, _ := cache.NewFileCache(dir)
//	k := cache.NewDefaultKeyer()
//	key := k.PlanKey(cache.Hash(specJSON), cache.PlanKeyOpts{Source: "spec"})
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired
	// entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Key types, used as the key prefix and as the hook label.
const (
	KeyTypePlan   = "plan"
	KeyTypeResult = "result"
)

// Default TTLs per key type.
const (
	TTLPlan   = 24 * time.Hour
	TTLResult = 6 * time.Hour
)

// Keyer generates cache keys.
type Keyer interface {
	// PlanKey keys a plan built from an input with the given hash.
	PlanKey(inputHash string, opts PlanKeyOpts) string
	// ResultKey keys an orchestration result for a plan hash.
	ResultKey(planHash string, opts ResultKeyOpts) string
}

// PlanKeyOpts are the planning options that change a plan.
type PlanKeyOpts struct {
	Source string // "spec" or "graph"
	Width  float64
	Height float64
	Margin float64
}

// ResultKeyOpts are the orchestration options that change a result.
type ResultKeyOpts struct {
	Primary          string
	SimpleThreshold  float64
	ComplexThreshold float64
	MaxAttempts      int
	Disabled         []string
}

// DefaultKeyer hashes the options together with the input hash.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PlanKey implements Keyer.
func (DefaultKeyer) PlanKey(inputHash string, opts PlanKeyOpts) string {
	return hashKey(KeyTypePlan, inputHash, opts.Source, opts.Width, opts.Height, opts.Margin)
}

// ResultKey implements Keyer. The order of disabled back-ends does not
// matter.
func (DefaultKeyer) ResultKey(planHash string, opts ResultKeyOpts) string {
	disabled := slices.Clone(opts.Disabled)
	slices.Sort(disabled)
	return hashKey(KeyTypeResult, planHash, opts.Primary,
		opts.SimpleThreshold, opts.ComplexThreshold, opts.MaxAttempts, disabled)
}

// KeyType returns the key type of key, or "" if it has none. Scoped keys
// are recognized by the type segment after their prefix.
func KeyType(key string) string {
	for _, t := range []string{KeyTypePlan, KeyTypeResult} {
		if strings.HasPrefix(key, t+":") || strings.Contains(key, ":"+t+":") {
			return t
		}
	}
	return ""
}
