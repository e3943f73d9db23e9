// Package edrclient talks to an EDR server: collection discovery, data
// queries and the CoverageJSON responses they return. Only the JSON plumbing
// lives here; coordinate construction and combination math stay in the
// domain/query packages.
package edrclient

import (
	"encoding/json"
	"fmt"

	"github.com/mvallgren/edr-grid-cache/internal/domain"
)

// Label is an EDR label, provided either directly or as a map of locales.
type Label string

const labelLocale = "en"

func (l *Label) UnmarshalJSON(b []byte) error {
	var direct string
	if err := json.Unmarshal(b, &direct); err == nil {
		*l = Label(direct)
		return nil
	}
	var locales map[string]string
	if err := json.Unmarshal(b, &locales); err != nil {
		return fmt.Errorf("label is neither a string nor a locale map: %w", err)
	}
	*l = Label(locales[labelLocale])
	return nil
}

// Link is one entry of a collection's links list.
type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// DataQuery describes one supported query type and its link.
type DataQuery struct {
	Link struct {
		Href string `json:"href"`
	} `json:"link"`
}

// Extent carries a collection's spatial and temporal extents.
type Extent struct {
	Spatial struct {
		BBox [][]float64 `json:"bbox"`
		CRS  string      `json:"crs"`
	} `json:"spatial"`
	Temporal struct {
		Interval [][]string `json:"interval"`
		Values   []string   `json:"values"`
		TRS      string     `json:"trs"`
	} `json:"temporal"`
}

// ParameterDesc is a collection-level parameter description.
type ParameterDesc struct {
	ObservedProperty struct {
		Label Label `json:"label"`
	} `json:"observedProperty"`
	Unit Unit `json:"unit"`
}

// Unit carries a parameter's unit symbol.
type Unit struct {
	Symbol struct {
		Value string `json:"value"`
	} `json:"symbol"`
}

// Collection is one entry of the collections listing.
type Collection struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title"`
	Links          []Link                   `json:"links"`
	Extent         Extent                   `json:"extent"`
	ParameterNames map[string]ParameterDesc `json:"parameter_names"`
	DataQueries    map[string]DataQuery     `json:"data_queries"`
}

// QueryTypes lists the query types the collection supports.
func (c *Collection) QueryTypes() []string {
	out := make([]string, 0, len(c.DataQueries))
	for qt := range c.DataQueries {
		out = append(out, qt)
	}
	return out
}

// ParamInfo is the condensed description served to dashboard consumers.
type ParamInfo struct {
	Label string `json:"label"`
	Units string `json:"units"`
}

// Parameters condenses the collection's parameter descriptions.
func (c *Collection) Parameters() map[string]ParamInfo {
	out := make(map[string]ParamInfo, len(c.ParameterNames))
	for id, desc := range c.ParameterNames {
		out[id] = ParamInfo{
			Label: string(desc.ObservedProperty.Label),
			Units: desc.Unit.Symbol.Value,
		}
	}
	return out
}

// Referencing is one reference-system entry of a coverage domain.
type Referencing struct {
	Coordinates []string `json:"coordinates"`
	System      struct {
		Type     string `json:"type"`
		Calendar string `json:"calendar"`
	} `json:"system"`
}

// TileSet points at the per-combination data tiles of a range.
type TileSet struct {
	TileShape   []int  `json:"tileShape"`
	URLTemplate string `json:"urlTemplate"`
}

// Range describes one parameter's data block within a coverage.
type Range struct {
	Type      string    `json:"type"`
	DataType  string    `json:"dataType"`
	AxisNames []string  `json:"axisNames"`
	Shape     []int     `json:"shape"`
	Values    []any     `json:"values"`
	TileSets  []TileSet `json:"tileSets"`
}

// CoverageParameter is a coverage-level parameter description, including the
// optional category encoding used for classified data.
type CoverageParameter struct {
	ObservedProperty struct {
		Label Label `json:"label"`
	} `json:"observedProperty"`
	Unit             Unit           `json:"unit"`
	CategoryEncoding map[string]int `json:"categoryEncoding"`
}

// Coverage is a CoverageJSON data response.
type Coverage struct {
	Domain struct {
		Axes        map[string]domain.AxisSpec `json:"axes"`
		Referencing []Referencing              `json:"referencing"`
	} `json:"domain"`
	Parameters map[string]CoverageParameter `json:"parameters"`
	Ranges     map[string]Range             `json:"ranges"`
}

// ParamNames lists the coverage's parameter names.
func (c *Coverage) ParamNames() []string {
	out := make([]string, 0, len(c.Parameters))
	for name := range c.Parameters {
		out = append(out, name)
	}
	return out
}

// Units maps parameter names to their unit strings.
func (c *Coverage) Units() map[string]string {
	out := make(map[string]string, len(c.Parameters))
	for name, p := range c.Parameters {
		out[name] = p.Unit.Symbol.Value
	}
	return out
}

// AxisOrders maps parameter names to the axis order of their arrays.
func (c *Coverage) AxisOrders() map[string][]string {
	out := make(map[string][]string, len(c.Ranges))
	for name, r := range c.Ranges {
		if len(r.AxisNames) > 0 {
			out[name] = r.AxisNames
		}
	}
	return out
}
