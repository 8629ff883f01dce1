package opencv

import (
	"fmt"

	"FramePipeline/internal/entity"
	"FramePipeline/pkg/camera"
	"gocv.io/x/gocv"
)

type handle struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	rgb     gocv.Mat
}

// Open connects to an RTSP/HTTP/file source. The capture buffer is kept at
// one frame so reads always return the freshest image.
func Open(address string) (camera.Handle, error) {
	capture, err := gocv.OpenVideoCapture(address)
	if err != nil {
		return nil, fmt.Errorf("failed to open video source: %w", err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("video source %s did not open", address)
	}
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	return &handle{
		capture: capture,
		frame:   gocv.NewMat(),
		rgb:     gocv.NewMat(),
	}, nil
}

func (h *handle) Read() ([]byte, entity.Shape, bool) {
	if ok := h.capture.Read(&h.frame); !ok || h.frame.Empty() {
		return nil, entity.Shape{}, false
	}

	// OpenCV decodes to BGR.
	gocv.CvtColor(h.frame, &h.rgb, gocv.ColorBGRToRGB)

	shape := entity.Shape{
		Height:   h.rgb.Rows(),
		Width:    h.rgb.Cols(),
		Channels: h.rgb.Channels(),
	}
	return h.rgb.ToBytes(), shape, true
}

func (h *handle) Close() error {
	_ = h.frame.Close()
	_ = h.rgb.Close()
	return h.capture.Close()
}
