package vision

// BoundingBox is an axis-aligned box in pixel space of the source image.
// A box is valid only when XMin < XMax and YMin < YMax.
type BoundingBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

func (b BoundingBox) Valid() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax
}

func (b BoundingBox) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return (b.XMax - b.XMin) * (b.YMax - b.YMin)
}

func (b BoundingBox) Center() (float64, float64) {
	return (b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2
}

// IoU returns the intersection-over-union of two boxes, 0 when they do not
// overlap or when either box is degenerate.
func IoU(a, b BoundingBox) float64 {
	if !a.Valid() || !b.Valid() {
		return 0
	}

	ixMin := maxFloat(a.XMin, b.XMin)
	iyMin := maxFloat(a.YMin, b.YMin)
	ixMax := minFloat(a.XMax, b.XMax)
	iyMax := minFloat(a.YMax, b.YMax)

	if ixMin >= ixMax || iyMin >= iyMax {
		return 0
	}

	intersection := (ixMax - ixMin) * (iyMax - iyMin)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Detection is a single detector hit. Origins records which detector(s)
// produced it; it stays runtime-only so the persisted JSON shape remains
// exactly {label, score, box}.
type Detection struct {
	Label   string      `json:"label"`
	Score   float64     `json:"score"`
	Box     BoundingBox `json:"box"`
	Origins []string    `json:"-"`
}

// FromOrigin reports whether the detection carries the given origin tag.
func (d Detection) FromOrigin(name string) bool {
	for _, origin := range d.Origins {
		if origin == name {
			return true
		}
	}
	return false
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
