package edrclient

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mvallgren/edr-grid-cache/internal/cache"
	"github.com/mvallgren/edr-grid-cache/internal/domain"
	"github.com/mvallgren/edr-grid-cache/internal/interval"
	"github.com/mvallgren/edr-grid-cache/internal/query"
	"github.com/mvallgren/edr-grid-cache/internal/session"
)

// tileResponse is the body behind a range's urlTemplate.
type tileResponse struct {
	Type     string `json:"type"`
	DataType string `json:"dataType"`
	Shape    []int  `json:"shape"`
	Values   []any  `json:"values"`
}

// expandTemplate substitutes {axis} markers in a urlTemplate.
func expandTemplate(template string, indices map[string]int) string {
	out := template
	for ax, idx := range indices {
		out = strings.ReplaceAll(out, "{"+ax+"}", strconv.Itoa(idx))
	}
	return out
}

// GridFetcher resolves combinations to tile URLs and fetches them. Ranges
// that carry their values inline are served without touching the network.
type GridFetcher struct {
	client *Client
	cov    *Coverage
	coords domain.Coords
}

// NewGridFetcher builds the session fetch collaborator for one coverage.
func NewGridFetcher(client *Client, cov *Coverage, coords domain.Coords) *GridFetcher {
	return &GridFetcher{client: client, cov: cov, coords: coords}
}

// FetchGrid implements session.Fetcher.
func (f *GridFetcher) FetchGrid(ctx context.Context, combo query.Combination) (*session.FetchResult, error) {
	rng, ok := f.cov.Ranges[combo.Param]
	if !ok {
		return nil, fmt.Errorf("coverage has no range for parameter %q", combo.Param)
	}

	// Some responses inline the whole data block.
	if rng.Values != nil {
		return &session.FetchResult{
			Values: rng.Values,
			DType:  rng.DataType,
			Shape:  rng.Shape,
			Type:   rng.Type,
		}, nil
	}

	if rng.Type != "TiledNdArray" {
		return nil, &session.UnsupportedParameterTypeError{Param: combo.Param, Type: rng.Type}
	}
	if len(rng.TileSets) == 0 {
		return nil, fmt.Errorf("range %q has no tile sets", combo.Param)
	}

	// The urlTemplate is keyed by coordinate indices, not values.
	indices := make(map[string]int, len(combo.Coords))
	for ax, v := range combo.Coords {
		idx, ok := domain.IndexOf(f.coords[ax], v)
		if !ok {
			return nil, &query.ValueNotFoundError{Axis: ax, Value: v}
		}
		indices[ax] = idx
	}
	tileURL := expandTemplate(rng.TileSets[0].URLTemplate, indices)

	var tile tileResponse
	if err := f.client.getJSON(ctx, tileURL, &tile); err != nil {
		return nil, err
	}
	return &session.FetchResult{
		Values: tile.Values,
		DType:  tile.DataType,
		Shape:  tile.Shape,
		Type:   rng.Type,
	}, nil
}

// SessionConfig carries the optional pieces of NewSession.
type SessionConfig struct {
	Store  cache.Store
	Logger zerolog.Logger
}

// NewSession turns a coverage into a ready query session: coordinates built
// from the domain description, temporal axes expanded from interval
// expressions to concrete instants, and the per-parameter axis orders wired
// through.
func (c *Client) NewSession(cov *Coverage, cfg SessionConfig) (*session.Session, error) {
	coords, err := domain.BuildCoords(cov.Domain.Axes)
	if err != nil {
		return nil, err
	}
	if err := expandTemporalAxes(coords); err != nil {
		return nil, err
	}

	params := cov.ParamNames()
	sort.Strings(params)

	return session.New(session.Config{
		Coords:    coords,
		Params:    params,
		AxisNames: cov.AxisOrders(),
		Fetcher:   NewGridFetcher(c, cov, coords),
		Store:     cfg.Store,
		Logger:    cfg.Logger,
	})
}

// expandTemporalAxes rewrites time-role axes in place, expanding any value
// that is an interval expression. Plain instants expand to themselves, so a
// fully explicit time axis passes through unchanged apart from being
// normalized to the long ISO form.
func expandTemporalAxes(coords domain.Coords) error {
	for name, points := range coords {
		if domain.RoleOf(name) != domain.RoleTime {
			continue
		}
		out := make([]any, 0, len(points))
		for _, p := range points {
			s, ok := p.(string)
			if !ok {
				out = append(out, p)
				continue
			}
			ts, err := interval.Expand(s)
			if err != nil {
				return fmt.Errorf("time axis %q value %q: %w", name, s, err)
			}
			for _, formatted := range interval.Format(ts) {
				out = append(out, formatted)
			}
		}
		coords[name] = out
	}
	return nil
}

// ReferenceSystems extracts the coverage's horizontal, vertical and temporal
// reference systems, resolved through the static registries.
func ReferenceSystems(cov *Coverage, coords domain.Coords) (crs, vrs, trs string, err error) {
	var horizontal []string
	hasZ := false
	hasT := false
	for name := range coords {
		switch {
		case domain.IsHorizontal(name):
			horizontal = append(horizontal, name)
		case domain.RoleOf(name) == domain.RoleVertical:
			hasZ = true
		case domain.RoleOf(name) == domain.RoleTime:
			hasT = true
		}
	}
	sort.Strings(horizontal)

	if len(horizontal) > 0 {
		ref, found := findReferencing(cov.Domain.Referencing, horizontal)
		if !found {
			// Try the reversed axis order, just in case.
			reversed := append([]string(nil), horizontal...)
			for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
				reversed[i], reversed[j] = reversed[j], reversed[i]
			}
			ref, found = findReferencing(cov.Domain.Referencing, reversed)
		}
		if !found {
			return "", "", "", fmt.Errorf("no reference system covers axes %v", horizontal)
		}
		crs, found = domain.CRSLookup[ref.System.Type]
		if !found {
			return "", "", "", fmt.Errorf("unknown CRS type %q", ref.System.Type)
		}
	}
	if hasZ {
		if ref, found := findReferencing(cov.Domain.Referencing, []string{"z"}); found {
			vrs = domain.VRSLookup[ref.System.Type]
		}
	}
	if hasT {
		if ref, found := findReferencing(cov.Domain.Referencing, []string{"t"}); found {
			var known bool
			trs, known = domain.TRSLookup[ref.System.Calendar]
			if !known {
				return "", "", "", fmt.Errorf("unknown calendar %q", ref.System.Calendar)
			}
		}
	}
	return crs, vrs, trs, nil
}

func findReferencing(refs []Referencing, coordinates []string) (*Referencing, bool) {
	for i := range refs {
		if equalStrings(refs[i].Coordinates, coordinates) {
			return &refs[i], true
		}
	}
	return nil, false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
