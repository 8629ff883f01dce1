package detection

import "errors"

var (
	ErrEngineUnavailable = errors.New("detection engine unavailable")
	ErrPublishFailed     = errors.New("failed to publish notification")
)
