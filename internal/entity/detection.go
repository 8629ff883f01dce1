package entity

import "image"

type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Box is a bounding box in absolute pixel coordinates.
type Box struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X0), int(b.Y0), int(b.X1), int(b.Y1))
}

type Detection struct {
	Box   Box     `json:"bounding_box"`
	Score float64 `json:"score"`
}

// DetectionResult carries a frame with at least one detection from an
// inference worker to an annotation worker.
type DetectionResult struct {
	Camera     string
	Shape      Shape
	Image      *image.RGBA
	Detections []Detection
}

// NotificationRecord is an annotated frame on the notification stream.
type NotificationRecord struct {
	Camera string
	Pixels []byte
	Shape  Shape
}
