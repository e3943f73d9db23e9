package domain

import "sort"

// Role is the canonical meaning of an axis name. Several synonyms map onto
// one role (x/longitude, y/latitude); the table is consulted once while
// parsing a domain description instead of scattering membership checks.
type Role int

const (
	RoleCustom Role = iota
	RoleEnsemble
	RoleTime
	RoleVertical
	RoleY
	RoleX
)

var axisRoles = map[string]Role{
	"e":         RoleEnsemble,
	"t":         RoleTime,
	"z":         RoleVertical,
	"y":         RoleY,
	"latitude":  RoleY,
	"x":         RoleX,
	"longitude": RoleX,
}

// RoleOf returns the canonical role for an axis name.
func RoleOf(name string) Role {
	if r, ok := axisRoles[name]; ok {
		return r
	}
	return RoleCustom
}

// IsHorizontal reports whether name is one of the planar spatial axes.
func IsHorizontal(name string) bool {
	r := RoleOf(name)
	return r == RoleX || r == RoleY
}

// axisRank orders axes ensemble, time, vertical, custom, y, x, so selection
// axes always precede the horizontal ones in aggregate shapes.
func axisRank(name string) int {
	switch RoleOf(name) {
	case RoleEnsemble:
		return 0
	case RoleTime:
		return 1
	case RoleVertical:
		return 2
	case RoleY:
		return 4
	case RoleX:
		return 5
	default:
		return 3
	}
}

// SortAxes sorts axis names in place into canonical order. Custom axes sort
// between the vertical and horizontal groups, alphabetically among themselves.
func SortAxes(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := axisRank(names[i]), axisRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}

// Reference-system registries. These are static lookup tables supplied
// externally; the canonical names are what downstream consumers key on.

// CRSLookup maps horizontal reference-system type names to canonical CRS names.
var CRSLookup = map[string]string{
	"WGS_1984":      "WGS84",
	"WGS84":         "WGS84",
	"GeographicCRS": "WGS84",
}

// TRSLookup maps temporal reference-system calendars to canonical names.
var TRSLookup = map[string]string{
	"Gregorian":          "gregorian",
	"Gregorian Calendar": "gregorian",
}

// VRSLookup maps vertical reference-system type names to canonical names.
var VRSLookup = map[string]string{
	"VerticalCRS": "vertical",
}
