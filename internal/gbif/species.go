package gbif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Species is a backbone-taxonomy entry for a taxon key.
type Species struct {
	Key            int64  `json:"key"`
	ScientificName string `json:"scientificName"`
	CanonicalName  string `json:"canonicalName"`
	Rank           string `json:"rank"`
	Family         string `json:"family"`
}

// LookupSpecies resolves a taxon key against the backbone taxonomy.
// An unknown key yields ErrInvalidTaxonKey.
func (c *Client) LookupSpecies(ctx context.Context, taxonKey int) (*Species, error) {
	if taxonKey <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTaxonKey, taxonKey)
	}

	endpoint := c.baseURL + "/v1/species/" + strconv.Itoa(taxonKey)

	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == 404 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidTaxonKey, taxonKey)
		}
		return nil, wrapTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var sp Species
	if err := json.NewDecoder(resp.Body).Decode(&sp); err != nil {
		return nil, fmt.Errorf("decode species response: %w", err)
	}

	return &sp, nil
}

// DensityTileURL builds the URL of an occurrence-density map tile for a
// taxon. Tiles are 512px PNG ("@2x") in the Web Mercator scheme.
func (c *Client) DensityTileURL(taxonKey, z, x, y int) string {
	return fmt.Sprintf(
		"%s/v2/map/occurrence/density/%d/%d/%d@2x.png?taxonKey=%d&style=classic.point",
		c.baseURL, z, x, y, taxonKey,
	)
}
