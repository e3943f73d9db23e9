// Package session drives grid retrieval for one query session: it owns the
// coordinate arrays, enumerates combinations, memoizes per-combination fetch
// results under their canonical keys and assembles aggregate arrays.
//
// Sessions are single-threaded and demand-driven. Nothing here retries; a
// failed fetch surfaces to the caller and leaves no cache entry, so the next
// lookup fetches again.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/mvallgren/edr-grid-cache/internal/cache"
	"github.com/mvallgren/edr-grid-cache/internal/domain"
	"github.com/mvallgren/edr-grid-cache/internal/ndgrid"
	"github.com/mvallgren/edr-grid-cache/internal/observability"
	"github.com/mvallgren/edr-grid-cache/internal/query"
)

// FetchResult is one combination's worth of data from the fetch collaborator:
// a flat value list plus the declared element type and target shape.
type FetchResult struct {
	Values []any
	DType  string
	Shape  []int
	// Type is the range representation reported by the server.
	Type string
}

// Fetcher retrieves the data slice for one fully resolved combination.
type Fetcher interface {
	FetchGrid(ctx context.Context, combo query.Combination) (*FetchResult, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, combo query.Combination) (*FetchResult, error)

func (f FetcherFunc) FetchGrid(ctx context.Context, combo query.Combination) (*FetchResult, error) {
	return f(ctx, combo)
}

// UnsupportedParameterTypeError reports a range representation the session
// does not know how to reshape.
type UnsupportedParameterTypeError struct {
	Param string
	Type  string
}

func (e *UnsupportedParameterTypeError) Error() string {
	return fmt.Sprintf("cannot process parameter %q range type %q", e.Param, e.Type)
}

// Config assembles a session. Coords, Params and Fetcher are required.
type Config struct {
	Coords domain.Coords
	Params []string

	// AxisNames is the per-parameter axis order of the server's arrays.
	// Parameters without an entry use the canonical order of Coords.
	AxisNames map[string][]string

	Fetcher Fetcher

	// Store defaults to a fresh in-memory store scoped to this session.
	Store cache.Store

	Logger zerolog.Logger
}

// Session holds the immutable coordinate and parameter state for one query
// session together with the per-key result cache.
type Session struct {
	coords    domain.Coords
	selection domain.Coords
	params    []string
	axisNames map[string][]string
	fetcher   Fetcher
	store     cache.Store
	log       zerolog.Logger
}

// New validates the configuration and builds a session.
func New(cfg Config) (*Session, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("session: a fetcher is required")
	}
	if len(cfg.Params) == 0 {
		return nil, fmt.Errorf("session: at least one parameter name is required")
	}
	if len(cfg.Coords) == 0 {
		return nil, fmt.Errorf("session: coordinate arrays are required")
	}
	for name, points := range cfg.Coords {
		if len(points) == 0 {
			return nil, fmt.Errorf("session: axis %q has no points", name)
		}
	}
	store := cfg.Store
	if store == nil {
		store = cache.NewMemory()
	}
	return &Session{
		coords:    cfg.Coords,
		selection: cfg.Coords.Selection(),
		params:    append([]string(nil), cfg.Params...),
		axisNames: cfg.AxisNames,
		fetcher:   cfg.Fetcher,
		store:     store,
		log:       cfg.Logger,
	}, nil
}

// Coords returns the session's coordinate arrays.
func (s *Session) Coords() domain.Coords { return s.coords }

// Params returns the parameter names in session order.
func (s *Session) Params() []string { return append([]string(nil), s.params...) }

// SelectionAxes returns the axes a combination must pin down.
func (s *Session) SelectionAxes() []string { return s.coords.SelectionAxes() }

// Combinations returns the lazy cross-product of parameters and
// selection-axis values. Safe to re-enumerate and to abandon early.
func (s *Session) Combinations() iter.Seq[query.Combination] {
	return query.Combinations(s.params, s.selection)
}

// CombinationCount is the number of distinct fetchable slices.
func (s *Session) CombinationCount() int {
	return query.Count(s.params, s.selection)
}

func (s *Session) axisOrder(param string) []string {
	if names, ok := s.axisNames[param]; ok {
		return names
	}
	return s.coords.AxisNames()
}

// GetItem returns the data slice for one combination, fetching it on the
// first request and serving it from the store afterwards. A fetch error is
// returned without writing anything, so the next call fetches again.
func (s *Session) GetItem(ctx context.Context, combo query.Combination) (*ndgrid.Array, error) {
	key := combo.Key()
	digest := query.KeyDigest(key)

	if enc, ok, err := s.store.Get(ctx, key); err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	} else if ok {
		observability.IncCacheHit()
		s.log.Debug().Str("key", digest).Msg("cache hit")
		var a ndgrid.Array
		if err := json.Unmarshal(enc, &a); err != nil {
			return nil, fmt.Errorf("decode cached block %s: %w", digest, err)
		}
		return &a, nil
	}
	observability.IncCacheMiss()

	start := time.Now()
	res, err := s.fetcher.FetchGrid(ctx, combo)
	observability.ObserveFetch(err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	switch res.Type {
	case "", "NdArray", "TiledNdArray":
	default:
		return nil, &UnsupportedParameterTypeError{Param: combo.Param, Type: res.Type}
	}

	arr, err := ndgrid.FromFlat(res.Values, ndgrid.SqueezeShape(res.Shape), res.DType)
	if err != nil {
		return nil, fmt.Errorf("reshape %s: %w", digest, err)
	}

	enc, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("encode block %s: %w", digest, err)
	}
	if err := s.store.Set(ctx, key, enc); err != nil {
		// The data is good even if the store is not; serve it and move on.
		s.log.Warn().Err(err).Str("key", digest).Msg("cache write failed")
	}
	s.log.Debug().Str("key", digest).Int("points", arr.Size()).Msg("fetched block")
	return arr, nil
}

// GetByKey resolves a canonical key back to a combination and fetches it.
func (s *Session) GetByKey(ctx context.Context, key string) (*ndgrid.Array, error) {
	param, strCoords, err := query.FromKey(key)
	if err != nil {
		return nil, err
	}
	coords := make(map[string]any, len(strCoords))
	for ax, v := range strCoords {
		coords[ax] = v
	}
	return s.GetItem(ctx, query.Combination{Param: param, Coords: coords})
}

// BuildParamArray assembles the aggregate array for one parameter by walking
// every combination of that parameter and assigning each fetched block at its
// insertion index. The aggregate's shape is the product space of all axes in
// the parameter's axis order.
func (s *Session) BuildParamArray(ctx context.Context, param string) (*ndgrid.Array, error) {
	order := s.axisOrder(param)
	shape := make([]int, len(order))
	for i, ax := range order {
		points, ok := s.coords[ax]
		if !ok {
			return nil, fmt.Errorf("parameter %q names unknown axis %q", param, ax)
		}
		shape[i] = len(points)
	}

	var agg *ndgrid.Array
	for combo := range s.Combinations() {
		if combo.Param != param {
			continue
		}
		block, err := s.GetItem(ctx, combo)
		if err != nil {
			return nil, err
		}
		if agg == nil {
			agg = ndgrid.New(shape, block.DType)
		}
		index, err := query.InsertionIndex(order, s.coords, combo.Coords)
		if err != nil {
			return nil, err
		}
		if err := agg.Assign(block, index); err != nil {
			return nil, fmt.Errorf("assign block %s: %w", query.KeyDigest(combo.Key()), err)
		}
	}
	if agg == nil {
		agg = ndgrid.New(shape, "float")
	}
	return agg, nil
}

// AllData builds the aggregate array for every parameter.
func (s *Session) AllData(ctx context.Context) (map[string]*ndgrid.Array, error) {
	out := make(map[string]*ndgrid.Array, len(s.params))
	for _, param := range s.params {
		a, err := s.BuildParamArray(ctx, param)
		if err != nil {
			return nil, err
		}
		out[param] = a
	}
	return out, nil
}
