package capture

import (
	"errors"
	"net/http"

	"FramePipeline/pkg/response"
)

var (
	ErrDetectorOffline = response.NewError(http.StatusServiceUnavailable, "primary detector is offline")
	ErrPublishFailed   = errors.New("failed to publish frame")
)
