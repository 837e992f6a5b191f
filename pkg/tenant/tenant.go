package tenant

import (
	"fmt"
	"regexp"

	"github.com/turkwise/graphmem/pkg/common"
)

// DefaultPrefix is prepended to tenant ids to form partition keys when no
// custom prefix is configured.
const DefaultPrefix = "turkwise_"

// MaxTenantIDLength bounds tenant ids so partition keys stay index-friendly.
const MaxTenantIDLength = 128

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Resolver maps external tenant ids to internal partition keys. The mapping is
// a fixed-prefix concatenation: deterministic, total over valid ids, and
// injective because the prefix is constant across all tenants. Downstream code
// must only ever carry the resolved partition key, never the raw tenant id.
type Resolver struct {
	prefix string
}

// NewResolver creates a Resolver with the given partition key prefix.
// An empty prefix falls back to DefaultPrefix.
func NewResolver(prefix string) *Resolver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Resolver{prefix: prefix}
}

// Resolve validates tenantID and returns its partition key. It fails with
// common.ErrInvalidTenantID for empty ids, ids longer than MaxTenantIDLength,
// and ids containing characters outside [A-Za-z0-9_-].
func (r *Resolver) Resolve(tenantID string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("%w: empty", common.ErrInvalidTenantID)
	}
	if len(tenantID) > MaxTenantIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", common.ErrInvalidTenantID, MaxTenantIDLength)
	}
	if !tenantIDPattern.MatchString(tenantID) {
		return "", fmt.Errorf("%w: only alphanumerics, underscore and hyphen are allowed", common.ErrInvalidTenantID)
	}
	return r.prefix + tenantID, nil
}
