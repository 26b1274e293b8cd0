// Package facematch holds the geometry and image handling behind face
// detection and similar-face search.
package facematch

import (
	"sort"

	"github.com/kozaktomas/photo-search/internal/recognition"
)

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])
	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := BBoxArea(bbox1) + BBoxArea(bbox2) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// SuppressOverlaps returns the indexes of boxes to keep, highest score first.
// A box is dropped when its IoU with an already kept box exceeds threshold.
func SuppressOverlaps(bboxes [][]float64, scores []float64, threshold float64) []int {
	order := make([]int, len(bboxes))
	for i := range order {
		order[i] = i
	}
	score := func(i int) float64 {
		if i < len(scores) {
			return scores[i]
		}
		return 0
	}
	sort.SliceStable(order, func(a, b int) bool { return score(order[a]) > score(order[b]) })

	var kept []int
	for _, i := range order {
		overlaps := false
		for _, k := range kept {
			if ComputeIoU(bboxes[i], bboxes[k]) > threshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, i)
		}
	}
	return kept
}

// ConvertPixelBBoxToRelative converts pixel bbox to relative (0-1) coordinates.
// Input bbox is [x1, y1, x2, y2] in pixels, output is [x1, y1, x2, y2] in relative coords.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] / float64(width),
		bbox[1] / float64(height),
		bbox[2] / float64(width),
		bbox[3] / float64(height),
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// PixelBBoxToBoundingBox converts a detector box [x1, y1, x2, y2] in pixels to
// a fractional left/top/width/height box clipped to the image.
func PixelBBoxToBoundingBox(bbox []float64, width, height int) (recognition.BoundingBox, bool) {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return recognition.BoundingBox{}, false
	}
	rel := ConvertPixelBBoxToRelative(bbox, width, height)
	x1, y1 := clamp01(rel[0]), clamp01(rel[1])
	x2, y2 := clamp01(rel[2]), clamp01(rel[3])
	if x2 <= x1 || y2 <= y1 {
		return recognition.BoundingBox{}, false
	}
	return recognition.BoundingBox{Left: x1, Top: y1, Width: x2 - x1, Height: y2 - y1}, true
}

// BBoxArea returns the area of a [x1, y1, x2, y2] box, zero when malformed.
func BBoxArea(bbox []float64) float64 {
	if len(bbox) != 4 || bbox[2] <= bbox[0] || bbox[3] <= bbox[1] {
		return 0
	}
	return (bbox[2] - bbox[0]) * (bbox[3] - bbox[1])
}
