package vision

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrDetectionUnavailable marks a scan that cannot continue because the
// primary detector failed to produce results.
var ErrDetectionUnavailable = errors.New("primary detector unavailable")

// Detector is one underlying vision model. Implementations must be safe for
// concurrent use; the engine never mutates them after construction.
type Detector interface {
	Name() string
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

type IEngine interface {
	Detect(ctx context.Context, image []byte, confidenceThreshold float64, useSecondary bool) ([]Detection, error)
	Annotate(image []byte, detections []Detection) ([]byte, error)
}

type Options struct {
	// IoUThreshold is the overlap above which two cross-origin detections
	// with equivalent labels are treated as the same physical object.
	IoUThreshold float64
	Synonyms     map[string]string
}

func DefaultOptions() Options {
	return Options{
		IoUThreshold: 0.5,
		Synonyms:     DefaultLabelSynonyms(),
	}
}

type engine struct {
	log       *logrus.Logger
	primary   Detector
	secondary Detector
	opts      Options
}

// NewEngine builds the detection engine around an already-loaded primary
// detector and an optional secondary one. Construct it once at startup and
// share the handle; the engine holds no per-scan state.
func NewEngine(log *logrus.Logger, primary Detector, secondary Detector, opts Options) IEngine {
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = 0.5
	}
	if opts.Synonyms == nil {
		opts.Synonyms = DefaultLabelSynonyms()
	}

	return &engine{
		log:       log,
		primary:   primary,
		secondary: secondary,
		opts:      opts,
	}
}

func (e *engine) Detect(ctx context.Context, image []byte, confidenceThreshold float64, useSecondary bool) ([]Detection, error) {
	primaryDets, err := e.primary.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDetectionUnavailable, err)
	}

	detections := e.prepare(primaryDets, e.primary.Name(), confidenceThreshold)

	if useSecondary && e.secondary != nil {
		secondaryDets, err := e.secondary.Detect(ctx, image)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"detector": e.secondary.Name(),
				"error":    err.Error(),
			}).Warn("Secondary detector failed, continuing with primary results only")
		} else {
			detections = append(detections, e.prepare(secondaryDets, e.secondary.Name(), confidenceThreshold)...)
		}
	}

	return e.merge(detections), nil
}

// prepare stamps the origin tag, drops sub-threshold scores and discards
// detections whose boxes violate the xmin<xmax, ymin<ymax invariant.
func (e *engine) prepare(detections []Detection, origin string, confidenceThreshold float64) []Detection {
	kept := make([]Detection, 0, len(detections))
	for _, det := range detections {
		if det.Score < confidenceThreshold {
			continue
		}
		if !det.Box.Valid() {
			e.log.WithFields(logrus.Fields{
				"detector": origin,
				"label":    det.Label,
			}).Warn("Dropping detection with degenerate bounding box")
			continue
		}
		det.Origins = []string{origin}
		kept = append(kept, det)
	}
	return kept
}

// merge collapses cross-origin duplicates. Two detections merge only when
// their origin sets are disjoint, their IoU exceeds the overlap threshold and
// their labels are equivalent under the synonym map. The survivor keeps the
// higher-confidence label, score and box, and the union of origins; same-model
// duplicates pass through untouched. Because a merged entry shares an origin
// with every detection it absorbed, re-running merge on merged output is a
// no-op.
func (e *engine) merge(detections []Detection) []Detection {
	merged := make([]Detection, 0, len(detections))

	for _, candidate := range detections {
		matched := false
		for i := range merged {
			if !e.mergeable(merged[i], candidate) {
				continue
			}
			merged[i] = combine(merged[i], candidate)
			matched = true
			break
		}
		if !matched {
			merged = append(merged, cloneDetection(candidate))
		}
	}

	return merged
}

func (e *engine) mergeable(a, b Detection) bool {
	if sharesOrigin(a, b) {
		return false
	}
	if IoU(a.Box, b.Box) <= e.opts.IoUThreshold {
		return false
	}
	return labelsEquivalent(a.Label, b.Label, e.opts.Synonyms)
}

func combine(a, b Detection) Detection {
	winner, loser := a, b
	if b.Score > a.Score {
		winner, loser = b, a
	}

	out := cloneDetection(winner)
	for _, origin := range loser.Origins {
		if !out.FromOrigin(origin) {
			out.Origins = append(out.Origins, origin)
		}
	}
	return out
}

func sharesOrigin(a, b Detection) bool {
	for _, origin := range a.Origins {
		if b.FromOrigin(origin) {
			return true
		}
	}
	return false
}

func cloneDetection(d Detection) Detection {
	out := d
	out.Origins = append([]string(nil), d.Origins...)
	return out
}
