package capture

type StreamState string

const (
	StreamActive   StreamState = "active"
	StreamInactive StreamState = "inactive"
)

type Stats struct {
	Camera        string      `json:"camera"`
	State         StreamState `json:"state"`
	Paused        bool        `json:"paused"`
	Read          uint64      `json:"frames_read"`
	RateLimited   uint64      `json:"rate_limited"`
	Published     uint64      `json:"published"`
	PublishFailed uint64      `json:"publish_failed"`
	OfflineDrops  uint64      `json:"offline_drops"`
}

type DetectorStatus struct {
	Alive bool   `json:"alive"`
	Key   string `json:"key"`
}
