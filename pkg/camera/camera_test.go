package camera

import (
	"errors"
	"testing"

	"FramePipeline/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	reads  []bool
	closed bool
}

func (h *fakeHandle) Read() ([]byte, entity.Shape, bool) {
	if len(h.reads) == 0 {
		return nil, entity.Shape{}, false
	}
	ok := h.reads[0]
	h.reads = h.reads[1:]
	if !ok {
		return nil, entity.Shape{}, false
	}
	return []byte{1, 2, 3}, entity.Shape{Height: 1, Width: 1, Channels: 3}, true
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

type fakeOpener struct {
	results []error
	handles []*fakeHandle
	calls   int
}

func (o *fakeOpener) open(string) (Handle, error) {
	i := o.calls
	o.calls++
	if i < len(o.results) && o.results[i] != nil {
		return nil, o.results[i]
	}
	h := &fakeHandle{}
	if len(o.handles) > 0 {
		h = o.handles[0]
		o.handles = o.handles[1:]
	}
	return h, nil
}

func TestUnavailableSourceReadsAsNoFrame(t *testing.T) {
	offline := errors.New("connection refused")
	opener := &fakeOpener{
		results: []error{offline, offline, nil},
		handles: []*fakeHandle{{reads: []bool{true}}},
	}
	cam := New("rtsp://cam", opener.open)

	_, _, ok := cam.ReadFrame()
	assert.False(t, ok)
	_, _, ok = cam.ReadFrame()
	assert.False(t, ok)

	pixels, shape, ok := cam.ReadFrame()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, pixels)
	assert.Equal(t, 3, shape.Channels)
	assert.Equal(t, 3, opener.calls)
}

func TestRepeatedMissesReopenSource(t *testing.T) {
	first := &fakeHandle{reads: []bool{true, false, false}}
	second := &fakeHandle{reads: []bool{true}}
	opener := &fakeOpener{handles: []*fakeHandle{first, second}}
	cam := New("rtsp://cam", opener.open, WithMaxMisses(2))

	_, _, ok := cam.ReadFrame()
	require.True(t, ok)

	_, _, ok = cam.ReadFrame()
	assert.False(t, ok)
	assert.False(t, first.closed)

	_, _, ok = cam.ReadFrame()
	assert.False(t, ok)
	assert.True(t, first.closed)
	assert.Equal(t, 1, opener.calls)

	_, _, ok = cam.ReadFrame()
	assert.True(t, ok)
	assert.Equal(t, 2, opener.calls)
}

func TestSingleMissKeepsHandle(t *testing.T) {
	h := &fakeHandle{reads: []bool{false, true}}
	opener := &fakeOpener{handles: []*fakeHandle{h}}
	cam := New("rtsp://cam", opener.open, WithMaxMisses(2))

	_, _, ok := cam.ReadFrame()
	assert.False(t, ok)
	_, _, ok = cam.ReadFrame()
	assert.True(t, ok)
	assert.Equal(t, 1, opener.calls)
	assert.False(t, h.closed)
}

func TestCloseWithoutHandle(t *testing.T) {
	opener := &fakeOpener{results: []error{errors.New("down")}}
	cam := New("rtsp://cam", opener.open)

	_, _, ok := cam.ReadFrame()
	assert.False(t, ok)
	assert.NoError(t, cam.Close())
}
