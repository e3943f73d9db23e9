package edrclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const collectionsBody = `{
  "collections": [
    {
      "id": "gfs",
      "title": "Global forecast",
      "extent": {
        "spatial": {
          "bbox": [[-180, -90, 180, 90]],
          "crs": "GEOGCS[\"WGS 84\", DATUM[\"WGS_1984\"]]"
        },
        "temporal": {
          "interval": [["2020-01-01T00:00Z", "2020-01-03T00:00Z"]],
          "values": ["2020-01-01T00:00Z/P1D/R2"],
          "trs": "TIMECRS[TDATUM[\"Gregorian Calendar\"]]"
        }
      },
      "parameter_names": {
        "t2m": {
          "observedProperty": {"label": {"en": "Air temperature"}},
          "unit": {"symbol": {"value": "K"}}
        },
        "rh": {
          "observedProperty": {"label": "Relative humidity"},
          "unit": {"symbol": {"value": "%"}}
        }
      },
      "data_queries": {
        "locations": {"link": {"href": "/collections/gfs/locations"}}
      }
    }
  ]
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, c
}

func TestCollections(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, collectionsBody)
	})

	colls, err := c.Collections(context.Background())
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if len(colls) != 1 || colls[0].ID != "gfs" {
		t.Fatalf("collections = %+v, want one with id gfs", colls)
	}

	if _, err := FindCollection(colls, "gfs"); err != nil {
		t.Fatalf("FindCollection by id: %v", err)
	}
	if _, err := FindCollection(colls, "Global forecast"); err != nil {
		t.Fatalf("FindCollection by title: %v", err)
	}
	if _, err := FindCollection(colls, "nope"); err == nil {
		t.Fatal("FindCollection found a missing collection")
	}
}

func TestCollection_ParametersAndLabels(t *testing.T) {
	var listing struct {
		Collections []Collection `json:"collections"`
	}
	if err := json.Unmarshal([]byte(collectionsBody), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	params := listing.Collections[0].Parameters()
	if params["t2m"].Label != "Air temperature" || params["t2m"].Units != "K" {
		t.Fatalf("t2m = %+v, want locale label and K", params["t2m"])
	}
	if params["rh"].Label != "Relative humidity" {
		t.Fatalf("rh = %+v, want direct label", params["rh"])
	}
}

func TestSpatialExtent(t *testing.T) {
	var listing struct {
		Collections []Collection `json:"collections"`
	}
	if err := json.Unmarshal([]byte(collectionsBody), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	bbox, crs, err := SpatialExtent(&listing.Collections[0])
	if err != nil {
		t.Fatalf("SpatialExtent: %v", err)
	}
	if crs != "WGS84" {
		t.Fatalf("crs = %q, want WGS84", crs)
	}
	if len(bbox) != 4 || bbox[0] != -180 {
		t.Fatalf("bbox = %v", bbox)
	}
}

func TestTemporalExtent_ExpandsIntervals(t *testing.T) {
	var listing struct {
		Collections []Collection `json:"collections"`
	}
	if err := json.Unmarshal([]byte(collectionsBody), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	points, trs, err := TemporalExtent(&listing.Collections[0])
	if err != nil {
		t.Fatalf("TemporalExtent: %v", err)
	}
	if trs != "gregorian" {
		t.Fatalf("trs = %q, want gregorian", trs)
	}
	want := []string{"2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z", "2020-01-03T00:00:00Z"}
	if len(points) != len(want) {
		t.Fatalf("points = %v, want %v", points, want)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("points = %v, want %v", points, want)
		}
	}
}

func TestGetJSON_ServerErrorBody(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"code": 404, "description": "collection not found"}`)
	})

	_, err := c.Collections(context.Background())
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if se.Code != 404 || se.Message != "collection not found" {
		t.Fatalf("ServerError = %+v, want code 404 with verbatim message", se)
	}
}

func TestGetJSON_HTTPErrorStatus(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := c.Collections(context.Background())
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if se.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", se.Code)
	}
}

func TestQueryLocations_RequiresSupport(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	coll := &Collection{ID: "x", DataQueries: map[string]DataQuery{}}
	if _, err := c.QueryLocations(context.Background(), coll, "loc", []string{"t2m"}, "2020-01-01T00:00Z"); err == nil {
		t.Fatal("expected unsupported query type error")
	}
}
