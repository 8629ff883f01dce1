package notification

import "errors"

var (
	ErrAlertDelivery  = errors.New("failed to deliver alert")
	ErrSnapshotEncode = errors.New("failed to encode snapshot")
)
