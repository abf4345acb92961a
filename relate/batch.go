// Package relate implements the Relationship Resolver: batched foreign-key
// traversal for nested GraphQL selections, guaranteeing at most one SQL
// query per relationship per parent result set regardless of its size.
package relate

// KeyFunc extracts a join key from a row.
type KeyFunc[K comparable, V any] func(V) K

// GroupByKey groups child rows by their join key. Used for one-to-many and
// many-to-one relationship fan-in: every row sharing a foreign key value
// lands in the same bucket.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	groups := make(map[K][]V, len(values))
	for _, v := range values {
		k := keyFn(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}

// OrderGroupsByKeys maps each parent key back to its child bucket, preserving
// the parent order. Parents with no matching children get a nil slice so the
// caller can tell "no rows" apart from "relationship absent from selection".
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, k := range keys {
		result[i] = groups[k]
	}
	return result
}

// OrderByKeys reorders single-valued results (many-to-one / one-to-one) to
// match the order of the requested keys. Missing keys leave a zero value.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	for i, k := range keys {
		if v, ok := lookup[k]; ok {
			result[i] = v
		}
	}
	return result
}

// UniqueKeys collects the distinct, non-nil join keys present across a batch
// of parent rows, preserving first-seen order so generated SQL (and its
// sqlmock expectations) is deterministic across runs.
func UniqueKeys[K comparable](keys []K, isNil func(K) bool) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if isNil != nil && isNil(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
