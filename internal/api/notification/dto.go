package notification

import "FramePipeline/internal/stream"

// SuppressMode decides when a camera's suppression window is opened relative
// to delivering its alert.
type SuppressMode string

const (
	// SuppressBefore claims the window atomically before delivering, so
	// concurrent notifiers never alert twice for the same window.
	SuppressBefore SuppressMode = "before"
	// SuppressAttempt opens the window after any delivery attempt.
	SuppressAttempt SuppressMode = "attempt"
	// SuppressSuccess opens the window only after a delivered alert.
	SuppressSuccess SuppressMode = "success"
)

type Stats struct {
	ClientName      string               `json:"client_name"`
	Mode            SuppressMode         `json:"suppress_mode"`
	Consumer        stream.ConsumerStats `json:"consumer"`
	Alerted         uint64               `json:"alerted"`
	Suppressed      uint64               `json:"suppressed"`
	DeliveryFailed  uint64               `json:"delivery_failed"`
	SuppressErrors  uint64               `json:"suppress_errors"`
	Archived        uint64               `json:"archived"`
	ArchiveFailed   uint64               `json:"archive_failed"`
	CooldownSeconds float64              `json:"cooldown_seconds"`
}
