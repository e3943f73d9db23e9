package edrclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mvallgren/edr-grid-cache/internal/domain"
	"github.com/mvallgren/edr-grid-cache/internal/interval"
)

const (
	collectionsPath = "collections/?f=json"
	locationsPath   = "collections/%s/locations/%s?parameter-name=%s&datetime=%s"
	genericPath     = "collections/%s/%s?%s"
)

// ServerError is an error body returned by the EDR server: a numeric code
// plus a message, surfaced verbatim.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return e.Message
}

// Option adjusts a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Client talks to one EDR server.
type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

// New builds a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("edr base url: %w", err)
	}
	c := &Client{
		base: u,
		http: defaultHTTPClient(),
		log:  zerolog.Nop(),
	}
	for _, f := range opts {
		f(c)
	}
	return c, nil
}

func defaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}
}

// getJSON fetches ref (resolved against the base URL unless absolute) and
// decodes the response. Error bodies with a "code" key become ServerError.
func (c *Client) getJSON(ctx context.Context, ref string, into any) error {
	u, err := c.base.Parse(ref)
	if err != nil {
		return fmt.Errorf("edr query url %q: %w", ref, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("edr GET %s: %w", u, err)
	}
	defer resp.Body.Close()
	c.log.Debug().
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("edr request")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("edr GET %s: read body: %w", u, err)
	}
	if err := serverError(body, resp.StatusCode); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &ServerError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("edr GET %s: decode: %w", u, err)
	}
	return nil
}

// serverError recognizes the EDR error body shape: a "code" key plus one
// message key whose name varies.
func serverError(body []byte, httpStatus int) error {
	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil // not an object; let the caller's decode complain
	}
	rawCode, ok := probe["code"]
	if !ok {
		return nil
	}
	se := &ServerError{Code: httpStatus}
	switch t := rawCode.(type) {
	case float64:
		se.Code = int(t)
	case string:
		se.Message = t
	}
	keys := make([]string, 0, len(probe))
	for k := range probe {
		if k != "code" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		se.Message = fmt.Sprintf("%v", probe[keys[0]])
	}
	return se
}

// Collections lists the server's collections.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var listing struct {
		Collections []Collection `json:"collections"`
	}
	if err := c.getJSON(ctx, collectionsPath, &listing); err != nil {
		return nil, err
	}
	return listing.Collections, nil
}

// FindCollection selects a collection by id or title.
func FindCollection(colls []Collection, key string) (*Collection, error) {
	for i := range colls {
		if colls[i].ID == key || colls[i].Title == key {
			return &colls[i], nil
		}
	}
	return nil, fmt.Errorf("collection %q could not be found", key)
}

// QueryLocations issues a locations query for the given collection, location
// and parameters over the datetime expression (a single instant or an
// interval expression, passed through to the server).
func (c *Client) QueryLocations(ctx context.Context, coll *Collection, locationID string, params []string, datetime string) (*Coverage, error) {
	if _, ok := coll.DataQueries["locations"]; !ok {
		return nil, fmt.Errorf("collection %q does not support locations queries", coll.ID)
	}
	ref := fmt.Sprintf(locationsPath,
		url.PathEscape(coll.ID),
		url.PathEscape(locationID),
		url.QueryEscape(strings.Join(params, ",")),
		url.QueryEscape(datetime),
	)
	var cov Coverage
	if err := c.getJSON(ctx, ref, &cov); err != nil {
		return nil, err
	}
	return &cov, nil
}

// Query issues a generic data query (radius, area, cube, ...) with caller
// supplied parameters. No validation happens here beyond the query type being
// advertised by the collection.
func (c *Client) Query(ctx context.Context, coll *Collection, queryType string, kv url.Values) (*Coverage, error) {
	if _, ok := coll.DataQueries[queryType]; !ok {
		return nil, fmt.Errorf("collection %q does not support %q queries", coll.ID, queryType)
	}
	ref := fmt.Sprintf(genericPath, url.PathEscape(coll.ID), url.PathEscape(queryType), kv.Encode())
	var cov Coverage
	if err := c.getJSON(ctx, ref, &cov); err != nil {
		return nil, err
	}
	return &cov, nil
}

// Locations lists the location IDs a collection defines.
func (c *Client) Locations(ctx context.Context, coll *Collection) ([]string, error) {
	dq, ok := coll.DataQueries["locations"]
	if !ok {
		return nil, fmt.Errorf("collection %q does not support locations queries", coll.ID)
	}
	var features struct {
		Features []struct {
			ID string `json:"id"`
		} `json:"features"`
	}
	if err := c.getJSON(ctx, dq.Link.Href, &features); err != nil {
		return nil, err
	}
	out := make([]string, len(features.Features))
	for i, f := range features.Features {
		out[i] = f.ID
	}
	return out, nil
}

var (
	datumRe  = regexp.MustCompile(`DATUM\["(?P<crsref>[\w_]+)`)
	tdatumRe = regexp.MustCompile(`TDATUM\["(?P<trsref>[\w ]+)`)
)

// SpatialExtent returns a collection's bounding box and the canonical CRS
// name extracted from the extent's WKT.
func SpatialExtent(coll *Collection) ([]float64, string, error) {
	if len(coll.Extent.Spatial.BBox) == 0 {
		return nil, "", fmt.Errorf("collection %q has no spatial extent", coll.ID)
	}
	m := datumRe.FindStringSubmatch(coll.Extent.Spatial.CRS)
	if m == nil {
		return nil, "", fmt.Errorf("no datum in CRS %q", coll.Extent.Spatial.CRS)
	}
	crs, ok := domain.CRSLookup[m[1]]
	if !ok {
		return nil, "", fmt.Errorf("unknown CRS datum %q", m[1])
	}
	return coll.Extent.Spatial.BBox[0], crs, nil
}

// TemporalExtent returns a collection's time points and canonical temporal
// reference system. Extents given as repeating-interval expressions are
// expanded to concrete instants.
func TemporalExtent(coll *Collection) ([]string, string, error) {
	trsName := "Gregorian"
	if m := tdatumRe.FindStringSubmatch(coll.Extent.Temporal.TRS); m != nil {
		trsName = m[1]
	}
	trs, ok := domain.TRSLookup[trsName]
	if !ok {
		return nil, "", fmt.Errorf("unknown temporal datum %q", trsName)
	}

	values := coll.Extent.Temporal.Values
	if len(values) == 0 {
		for _, pair := range coll.Extent.Temporal.Interval {
			values = append(values, strings.Join(pair, "/"))
		}
	}
	var points []string
	for _, v := range values {
		ts, err := interval.Expand(v)
		if err != nil {
			return nil, "", fmt.Errorf("temporal extent %q: %w", v, err)
		}
		points = append(points, interval.Format(ts)...)
	}
	return points, trs, nil
}
