package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mvallgren/edr-grid-cache/internal/cache"
	"github.com/mvallgren/edr-grid-cache/internal/edrclient"
)

const upstreamCollections = `{
  "collections": [
    {
      "id": "gfs",
      "title": "Global forecast",
      "parameter_names": {
        "t2m": {
          "observedProperty": {"label": {"en": "Air temperature"}},
          "unit": {"symbol": {"value": "K"}}
        }
      },
      "data_queries": {
        "locations": {"link": {"href": "/collections/gfs/locations"}}
      }
    }
  ]
}`

const upstreamCoverage = `{
  "domain": {
    "axes": {
      "t": {"values": ["2020-01-01T00:00Z"]},
      "y": {"start": 0, "stop": 1, "num": 2},
      "x": {"start": 0, "stop": 1, "num": 2}
    },
    "referencing": [
      {"coordinates": ["x", "y"], "system": {"type": "GeographicCRS"}},
      {"coordinates": ["t"], "system": {"type": "TemporalRS", "calendar": "Gregorian Calendar"}}
    ]
  },
  "parameters": {
    "t2m": {
      "observedProperty": {"label": {"en": "Air temperature"}},
      "unit": {"symbol": {"value": "K"}}
    }
  },
  "ranges": {
    "t2m": {
      "type": "NdArray",
      "dataType": "float",
      "axisNames": ["t", "y", "x"],
      "shape": [1, 2, 2],
      "values": [274.1, 274.2, null, 274.4]
    }
  }
}`

func newTestAPI(t *testing.T) *api {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/":
			fmt.Fprint(w, upstreamCollections)
		case "/collections/gfs/locations/stockholm":
			fmt.Fprint(w, upstreamCoverage)
		default:
			fmt.Fprint(w, `{"code": 404, "description": "no such path"}`)
		}
	}))
	t.Cleanup(upstream.Close)

	client, err := edrclient.New(upstream.URL)
	if err != nil {
		t.Fatalf("edrclient.New: %v", err)
	}
	return &api{log: zerolog.Nop(), client: client, store: cache.NewMemory()}
}

func newTestRouter(app *api) http.Handler {
	r := chi.NewRouter()
	r.Get("/collections", app.handleCollections)
	r.Get("/collections/{id}/parameters", app.handleParameters)
	r.Get("/collections/{id}/grid", app.handleGrid)
	return r
}

func TestHandleCollections(t *testing.T) {
	r := newTestRouter(newTestAPI(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out []collectionSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "gfs" {
		t.Fatalf("collections = %+v", out)
	}
}

func TestHandleParameters(t *testing.T) {
	r := newTestRouter(newTestAPI(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/gfs/parameters", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out map[string]edrclient.ParamInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["t2m"].Label != "Air temperature" || out["t2m"].Units != "K" {
		t.Fatalf("parameters = %+v", out)
	}
}

func TestHandleGrid(t *testing.T) {
	r := newTestRouter(newTestAPI(t))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/collections/gfs/grid?location=stockholm&parameter-name=t2m", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out gridResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.CRS != "WGS84" || out.TRS != "gregorian" {
		t.Fatalf("reference systems = %q %q", out.CRS, out.TRS)
	}
	rng, ok := out.Ranges["t2m"]
	if !ok {
		t.Fatalf("ranges = %+v, want t2m", out.Ranges)
	}
	if len(rng.Values) != 4 {
		t.Fatalf("values = %v, want 4 points", rng.Values)
	}
	// The null upstream point stays null in the assembled grid.
	if rng.Values[2] != nil {
		t.Fatalf("values[2] = %v, want null", rng.Values[2])
	}
	if out.Units["t2m"] != "K" {
		t.Fatalf("units = %+v", out.Units)
	}
}

func TestHandleGrid_MissingLocation(t *testing.T) {
	r := newTestRouter(newTestAPI(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collections/gfs/grid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
