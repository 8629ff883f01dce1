package camera

import (
	"sync"

	"FramePipeline/internal/entity"
	"FramePipeline/pkg/log"
)

const defaultMaxMisses = 10

type ICamera interface {
	// ReadFrame returns the next RGB frame; ok is false while the feed is
	// not producing frames.
	ReadFrame() (pixels []byte, shape entity.Shape, ok bool)
	Close() error
}

// Handle is one open connection to a video source.
type Handle interface {
	Read() (pixels []byte, shape entity.Shape, ok bool)
	Close() error
}

// Opener connects to address. It is retried on the next ReadFrame after a
// failure.
type Opener func(address string) (Handle, error)

type Option func(*camera)

// WithMaxMisses sets how many consecutive empty reads drop the handle.
func WithMaxMisses(n int) Option {
	return func(c *camera) {
		if n > 0 {
			c.maxMisses = n
		}
	}
}

type camera struct {
	mu        sync.Mutex
	address   string
	open      Opener
	handle    Handle
	misses    int
	maxMisses int
	opens     int
}

// New never fails: an unreachable source just reads as no frame until it
// comes back.
func New(address string, open Opener, opts ...Option) ICamera {
	c := &camera{
		address:   address,
		open:      open,
		maxMisses: defaultMaxMisses,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *camera) ReadFrame() ([]byte, entity.Shape, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil && !c.connect() {
		return nil, entity.Shape{}, false
	}

	pixels, shape, ok := c.handle.Read()
	if ok {
		c.misses = 0
		return pixels, shape, true
	}

	c.misses++
	if c.misses >= c.maxMisses {
		log.Warn(log.Fields{
			"consecutive_misses": c.misses,
		}, "Video source stopped producing frames, reopening")
		c.drop()
	}
	return nil, entity.Shape{}, false
}

func (c *camera) connect() bool {
	h, err := c.open(c.address)
	if err != nil {
		log.Warn(log.Fields{"error": err.Error()}, "Failed to open video source")
		return false
	}
	c.opens++
	if c.opens > 1 {
		log.Info(log.Fields{"opens": c.opens}, "Video source reopened")
	}
	c.handle = h
	c.misses = 0
	return true
}

func (c *camera) drop() {
	if err := c.handle.Close(); err != nil {
		log.Debug(log.Fields{"error": err.Error()}, "Closing video source")
	}
	c.handle = nil
	c.misses = 0
}

func (c *camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		return nil
	}
	err := c.handle.Close()
	c.handle = nil
	return err
}
