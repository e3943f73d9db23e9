package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mvallgren/edr-grid-cache/internal/cache"
	"github.com/mvallgren/edr-grid-cache/internal/edrclient"
	"github.com/mvallgren/edr-grid-cache/internal/ndgrid"
	"github.com/mvallgren/edr-grid-cache/internal/query"
)

type api struct {
	log    zerolog.Logger
	client *edrclient.Client
	store  cache.Store
}

// Readiness probes the upstream EDR server with a short collections listing.
func (a *api) Readiness() (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.client.Collections(ctx); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps library errors onto HTTP statuses: client mistakes become
// 400, upstream failures 502, everything else 500.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var se *edrclient.ServerError
	var nf *query.ValueNotFoundError
	switch {
	case errors.As(err, &se):
		status = http.StatusBadGateway
	case errors.As(err, &nf):
		status = http.StatusBadRequest
	}
	a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, status, map[string]any{"code": status, "description": err.Error()})
}

type collectionSummary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	QueryTypes []string `json:"query_types"`
}

func (a *api) handleCollections(w http.ResponseWriter, r *http.Request) {
	colls, err := a.client.Collections(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]collectionSummary, len(colls))
	for i := range colls {
		out[i] = collectionSummary{
			ID:         colls[i].ID,
			Title:      colls[i].Title,
			QueryTypes: colls[i].QueryTypes(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) findCollection(r *http.Request) (*edrclient.Collection, error) {
	colls, err := a.client.Collections(r.Context())
	if err != nil {
		return nil, err
	}
	return edrclient.FindCollection(colls, chi.URLParam(r, "id"))
}

func (a *api) handleParameters(w http.ResponseWriter, r *http.Request) {
	coll, err := a.findCollection(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coll.Parameters())
}

func (a *api) handleLocations(w http.ResponseWriter, r *http.Request) {
	coll, err := a.findCollection(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ids, err := a.client.Locations(r.Context(), coll)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": ids})
}

type gridRange struct {
	Shape  []int    `json:"shape"`
	Axes   []string `json:"axes"`
	DType  string   `json:"dtype"`
	Values []any    `json:"values"`
}

type gridResponse struct {
	Axes   map[string][]any     `json:"axes"`
	CRS    string               `json:"crs,omitempty"`
	VRS    string               `json:"vrs,omitempty"`
	TRS    string               `json:"trs,omitempty"`
	Units  map[string]string    `json:"units"`
	Ranges map[string]gridRange `json:"ranges"`
}

// handleGrid runs a full query session: locations query upstream, combination
// fetch with memoization, aggregate assembly, all returned as one JSON grid.
func (a *api) handleGrid(w http.ResponseWriter, r *http.Request) {
	coll, err := a.findCollection(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code": http.StatusBadRequest, "description": "missing required parameter: location",
		})
		return
	}
	datetime := strings.TrimSpace(r.URL.Query().Get("datetime"))

	var params []string
	if raw := strings.TrimSpace(r.URL.Query().Get("parameter-name")); raw != "" {
		params = strings.Split(raw, ",")
	} else {
		for name := range coll.ParameterNames {
			params = append(params, name)
		}
	}

	cov, err := a.client.QueryLocations(r.Context(), coll, location, params, datetime)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	sess, err := a.client.NewSession(cov, edrclient.SessionConfig{Store: a.store, Logger: a.log})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	data, err := sess.AllData(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	coords := sess.Coords()
	crs, vrs, trs, err := edrclient.ReferenceSystems(cov, coords)
	if err != nil {
		// Reference systems are advisory for the dashboard; serve without.
		a.log.Warn().Err(err).Msg("reference system lookup failed")
	}

	resp := gridResponse{
		Axes:   coords,
		CRS:    crs,
		VRS:    vrs,
		TRS:    trs,
		Units:  cov.Units(),
		Ranges: make(map[string]gridRange, len(data)),
	}
	orders := cov.AxisOrders()
	for param, arr := range data {
		order := orders[param]
		if order == nil {
			order = coords.AxisNames()
		}
		resp.Ranges[param] = gridRange{
			Shape:  arr.Shape,
			Axes:   order,
			DType:  arr.DType,
			Values: arrayValues(arr),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// arrayValues flattens an array to a JSON value list, masked points as nulls.
func arrayValues(a *ndgrid.Array) []any {
	out := make([]any, len(a.Data))
	for i, v := range a.Data {
		if a.Mask != nil && a.Mask[i] {
			continue
		}
		out[i] = v
	}
	return out
}
