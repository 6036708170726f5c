package cosmoweb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/footprint"
	"github.com/hupe1980/cosmoweb/twopoint"
)

var (
	// ErrInvalidConfig indicates a configuration the engine cannot work
	// with (unsorted bin edges, nonpositive radii or ratios, an empty
	// footprint). Such errors require caller correction and are raised
	// before any computation starts.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyCatalog indicates an operation on a catalog with no points.
	// All spatial statistics depend on a populated index, so this is
	// fatal for the operation that hit it.
	ErrEmptyCatalog = catalog.ErrEmptyCatalog
)

// translateError normalizes package-level errors to the engine's
// taxonomy so callers can branch on ErrInvalidConfig without knowing
// which subpackage raised it.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, footprint.ErrEmptyFootprint) || errors.Is(err, twopoint.ErrInvalidBinEdges) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return err
}
