package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"UrbanScout/pkg/vision"
)

const boxPrompt = `Detect public infrastructure objects in this street-level photo: potholes, cracks, road damage, traffic signs, traffic lights, fire hydrants, benches, street lights, drains.

Respond with ONLY a JSON array, no extra text. Each element must be:
{"label": "<object name>", "score": <confidence 0..1>, "box": {"xmin": <px>, "ymin": <px>, "xmax": <px>, "ymax": <px>}}

Pixel coordinates are relative to the image. Return [] if nothing is found.`

type boxDetector struct {
	client IGemini
}

// NewBoxDetector adapts the multimodal model into a bounding box source so it
// can run alongside the dedicated detection service.
func NewBoxDetector(client IGemini) vision.Detector {
	return &boxDetector{client: client}
}

func (d *boxDetector) Name() string {
	return "gemini"
}

func (d *boxDetector) Detect(ctx context.Context, image []byte) ([]vision.Detection, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	text, err := d.client.AnalyzeImage(ctx, encoded, boxPrompt)
	if err != nil {
		return nil, err
	}

	return parseDetectionArray(text)
}

// parseDetectionArray pulls the JSON array out of the model reply, which may
// be wrapped in markdown fences or prose.
func parseDetectionArray(text string) ([]vision.Detection, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in model response")
	}

	var detections []vision.Detection
	if err := json.Unmarshal([]byte(text[start:end+1]), &detections); err != nil {
		return nil, fmt.Errorf("malformed detection array: %w", err)
	}

	return detections, nil
}
