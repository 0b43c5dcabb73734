package surface

import (
	"fmt"
	"strings"

	"github.com/evanschultz/lapse/internal/app"
	"github.com/evanschultz/lapse/internal/domain"
)

// SpawnPolicy chooses where new bubbles appear.
type SpawnPolicy string

// SpawnPolicy values.
const (
	SpawnOrigin SpawnPolicy = "origin"
	SpawnCenter SpawnPolicy = "center"
)

// ParseSpawnPolicy reads a configured policy name. Empty means origin.
func ParseSpawnPolicy(raw string) (SpawnPolicy, error) {
	switch SpawnPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SpawnOrigin:
		return SpawnOrigin, nil
	case SpawnCenter:
		return SpawnCenter, nil
	default:
		return "", fmt.Errorf("unknown spawn policy %q", raw)
	}
}

// SpawnFunc returns the store placement func for policy. Center placement
// falls back to the origin until bounds are measured.
func (p SpawnPolicy) SpawnFunc(bounds BoundsSource) app.SpawnFunc {
	return func(size float64) domain.Point {
		if p != SpawnCenter || bounds == nil {
			return domain.Point{}
		}
		b, ok := bounds.Current()
		if !ok {
			return domain.Point{}
		}
		return b.Center(size)
	}
}
