package facematch

import (
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
)

// ErrInvalidRegion is returned for a malformed location string.
var ErrInvalidRegion = errors.New("invalid region")

// Region is a crop rectangle as fractions of the source image dimensions.
type Region struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// ParseRegion parses four space-separated numbers in width, height, left,
// top order. This differs from the left, top, width, height order used by
// face detection results; callers must convert.
func ParseRegion(s string) (Region, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return Region{}, fmt.Errorf("%w: expected 4 values, got %d", ErrInvalidRegion, len(fields))
	}

	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			return Region{}, fmt.Errorf("%w: %q is not a non-negative number", ErrInvalidRegion, f)
		}
		v[i] = n
	}
	return Region{Width: v[0], Height: v[1], Left: v[2], Top: v[3]}, nil
}

func formatFraction(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CropKey derives the blob key of a crop. The same photo and region always
// map to the same key so repeated crops overwrite one object.
func CropKey(prefix, photoID string, r Region) string {
	name := strings.Join([]string{
		formatFraction(r.Left),
		formatFraction(r.Top),
		formatFraction(r.Width),
		formatFraction(r.Height),
	}, "_") + ".png"
	return path.Join(prefix, photoID, name)
}
