// Package query implements the combinatorics side of grid retrieval: the
// cross-product of parameter names and selection-axis coordinate values, the
// canonical cache-key encoding of one combination, and the n-dimensional
// insertion index that places a fetched block inside an aggregate array.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mvallgren/edr-grid-cache/internal/domain"
)

// Combination identifies one fetchable data slice: a parameter name plus one
// chosen value per selection axis.
type Combination struct {
	Param  string
	Coords map[string]any
}

// Key returns the combination's canonical key.
func (c Combination) Key() string {
	return MakeKey(c.Param, c.Coords)
}

// MakeKey encodes a combination as "name=<param>,<ax1>=<v1>,...", with axes
// sorted ascending by name so equal combinations always share one key.
func MakeKey(param string, coords map[string]any) string {
	axes := make([]string, 0, len(coords))
	for ax := range coords {
		axes = append(axes, ax)
	}
	sort.Strings(axes)

	var b strings.Builder
	b.WriteString("name=")
	b.WriteString(param)
	for _, ax := range axes {
		b.WriteByte(',')
		b.WriteString(ax)
		b.WriteByte('=')
		b.WriteString(domain.FormatValue(coords[ax]))
	}
	return b.String()
}

// FromKey is the exact inverse of MakeKey for the parameter name and the
// axis-name/value pairs. Values come back as strings; the key format is
// text-only and deliberately lossy about numeric versus string types.
func FromKey(key string) (string, map[string]string, error) {
	parts := strings.Split(key, ",")
	name, param, ok := strings.Cut(parts[0], "=")
	if !ok || name != "name" {
		return "", nil, fmt.Errorf("key %q does not start with a name= segment", key)
	}
	coords := make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		ax, val, ok := strings.Cut(part, "=")
		if !ok {
			return "", nil, fmt.Errorf("key segment %q is not <axis>=<value>", part)
		}
		coords[ax] = val
	}
	return param, coords, nil
}

// KeyDigest returns a short stable digest of a canonical key, for compact
// log fields and store identifiers.
func KeyDigest(key string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}
