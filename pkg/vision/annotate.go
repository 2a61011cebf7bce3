package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrUnsupportedImage marks input the renderer cannot decode. Callers treat
// it as non-fatal and fall back to the unannotated image.
var ErrUnsupportedImage = errors.New("unsupported image format")

const boxThickness = 3

var annotationColor = color.RGBA{R: 220, G: 20, B: 20, A: 255}

func (e *engine) Annotate(imageBytes []byte, detections []Detection) ([]byte, error) {
	return Annotate(imageBytes, detections)
}

// Annotate draws each detection's box and a "label score" caption onto a copy
// of the input image and returns it as JPEG. The input slice is never
// modified and the output is deterministic for identical inputs.
func Annotate(imageBytes []byte, detections []Detection) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for _, det := range detections {
		if !det.Box.Valid() {
			continue
		}
		rect := clampRect(det.Box, bounds)
		drawBox(canvas, rect)
		drawCaption(canvas, rect, fmt.Sprintf("%s %.2f", det.Label, det.Score))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}

	return buf.Bytes(), nil
}

func clampRect(box BoundingBox, bounds image.Rectangle) image.Rectangle {
	rect := image.Rect(int(box.XMin), int(box.YMin), int(box.XMax), int(box.YMax))
	return rect.Intersect(bounds)
}

func drawBox(canvas *image.RGBA, rect image.Rectangle) {
	if rect.Empty() {
		return
	}

	fill := image.NewUniform(annotationColor)

	top := image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+boxThickness)
	bottom := image.Rect(rect.Min.X, rect.Max.Y-boxThickness, rect.Max.X, rect.Max.Y)
	left := image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+boxThickness, rect.Max.Y)
	right := image.Rect(rect.Max.X-boxThickness, rect.Min.Y, rect.Max.X, rect.Max.Y)

	for _, edge := range []image.Rectangle{top, bottom, left, right} {
		draw.Draw(canvas, edge.Intersect(canvas.Bounds()), fill, image.Point{}, draw.Src)
	}
}

func drawCaption(canvas *image.RGBA, rect image.Rectangle, caption string) {
	// Keep the caption inside the image when the box touches the top edge.
	y := rect.Min.Y - 4
	if y < canvas.Bounds().Min.Y+basicfont.Face7x13.Height {
		y = rect.Min.Y + basicfont.Face7x13.Height + boxThickness
	}

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(annotationColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(rect.Min.X, y),
	}
	drawer.DrawString(caption)
}
