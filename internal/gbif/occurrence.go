package gbif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// OccurrenceQuery selects occurrence records for one taxon.
type OccurrenceQuery struct {
	TaxonKey           int
	RequireCoordinates bool
	Limit              int
}

// Occurrence is the subset of an occurrence-search record this tool reads.
// Coordinates are pointers because not every record carries them.
type Occurrence struct {
	Key              int64    `json:"key"`
	Genus            string   `json:"genus"`
	Species          string   `json:"species"`
	Family           string   `json:"family"`
	EventDate        string   `json:"eventDate"`
	DecimalLongitude *float64 `json:"decimalLongitude"`
	DecimalLatitude  *float64 `json:"decimalLatitude"`
}

// HasCoordinates reports whether both coordinate fields are present.
func (o *Occurrence) HasCoordinates() bool {
	return o.DecimalLongitude != nil && o.DecimalLatitude != nil
}

type searchResponse struct {
	Offset       int          `json:"offset"`
	Limit        int          `json:"limit"`
	EndOfRecords bool         `json:"endOfRecords"`
	Count        int64        `json:"count"`
	Results      []Occurrence `json:"results"`
}

// SearchOccurrences runs a single occurrence-search request and returns the
// records in source order. Limits above MaxPageSize are capped silently; the
// search is never paginated.
func (c *Client) SearchOccurrences(ctx context.Context, q OccurrenceQuery) ([]Occurrence, error) {
	if q.TaxonKey <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTaxonKey, q.TaxonKey)
	}
	limit := q.Limit
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", q.Limit)
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	v := url.Values{}
	v.Set("taxonKey", strconv.Itoa(q.TaxonKey))
	v.Set("hasCoordinate", strconv.FormatBool(q.RequireCoordinates))
	v.Set("limit", strconv.Itoa(limit))

	endpoint := c.baseURL + "/v1/occurrence/search?" + v.Encode()

	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == 400 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTaxonKey, err)
		}
		return nil, wrapTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode occurrence response: %w", err)
	}

	return decoded.Results, nil
}
