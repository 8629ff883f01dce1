package detection

import (
	"FramePipeline/internal/queue"
	"FramePipeline/internal/stream"
)

type Stats struct {
	ClientName    string                 `json:"client_name"`
	Consumers     []stream.ConsumerStats `json:"consumers"`
	Inbound       queue.Stats            `json:"inbound_queue"`
	Draw          queue.Stats            `json:"draw_queue"`
	Inferred      uint64                 `json:"inferred"`
	Detected      uint64                 `json:"detected"`
	EngineErrors  uint64                 `json:"engine_errors"`
	Published     uint64                 `json:"published"`
	PublishFailed uint64                 `json:"publish_failed"`
}
