package store

import (
	"errors"

	"go.ngs.io/swath-geocoding/internal/geocoding"
)

// ErrProductNotFound is returned for unknown product IDs
var ErrProductNotFound = errors.New("product not found")

// ProductSource is the interface for listing swath products and obtaining their geocodings
type ProductSource interface {
	// ListProducts returns the IDs of the available products, sorted
	ListProducts() ([]string, error)

	// GeoCoding returns the geocoding of a product (built once and cached).
	// Unknown IDs yield an error wrapping ErrProductNotFound.
	GeoCoding(id string) (*geocoding.TiePointGeoCoding, error)
}
