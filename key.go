package twincache

import "strings"

// Flattening separators. Per spec the canonical form is:
//
//	providerKey + "$d$" + dynamicKey + "$g$" + dynamicGroupKey
//
// with empty segments for absent parts.
const (
	dynamicKeySep = "$d$"
	groupKeySep   = "$g$"
)

// Key is the composite address of a cache entry: a provider key plus two
// optional dynamic qualifiers. An empty DynamicKey or GroupKey is the same
// key as an absent one; Key cannot tell the two apart.
type Key struct {
	ProviderKey string
	DynamicKey  string
	GroupKey    string
}

// HasSeparator reports whether any segment of the key contains a reserved
// flattening separator. Callers must reject (or escape) such keys rather
// than silently flattening them into an ambiguous form.
func (k Key) HasSeparator() bool {
	return strings.Contains(k.ProviderKey, dynamicKeySep) ||
		strings.Contains(k.ProviderKey, groupKeySep) ||
		strings.Contains(k.DynamicKey, dynamicKeySep) ||
		strings.Contains(k.DynamicKey, groupKeySep) ||
		strings.Contains(k.GroupKey, dynamicKeySep) ||
		strings.Contains(k.GroupKey, groupKeySep)
}

// Flatten returns the canonical string form used to address the Memory
// Layer and Persistence.
func (k Key) Flatten() string {
	var b strings.Builder
	b.WriteString(k.ProviderKey)
	b.WriteString(dynamicKeySep)
	b.WriteString(k.DynamicKey)
	b.WriteString(groupKeySep)
	b.WriteString(k.GroupKey)
	return b.String()
}

// providerPrefix is the flattened prefix matching every key under a
// provider, used by EvictProvider-scoped evictions.
func providerPrefix(providerKey string) string {
	return providerKey + dynamicKeySep
}

// dynamicKeyPrefix is the flattened prefix matching every key under a
// (providerKey, dynamicKey) pair, used by EvictDynamicKey-scoped evictions.
func dynamicKeyPrefix(providerKey, dynamicKey string) string {
	return providerKey + dynamicKeySep + dynamicKey + groupKeySep
}

// dynamicKeyGroupPrefix is the flattened prefix (which is in fact a full
// key) matching a single (providerKey, dynamicKey, groupKey) scope.
func dynamicKeyGroupPrefix(providerKey, dynamicKey, groupKey string) string {
	return Key{ProviderKey: providerKey, DynamicKey: dynamicKey, GroupKey: groupKey}.Flatten()
}
