package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/suit/internal/vision"
)

// ErrNoMoreFrames is returned by a MockCamera that has played all its frames.
var ErrNoMoreFrames = errors.New("no more frames")

// MockCamera plays back pre-recorded frames. Frames are cloned on read, so
// the caller keeps ownership of the originals.
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	reads   int
	loop    bool
	mu      sync.Mutex
	running bool
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (vision.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return vision.Image{}, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return vision.Image{}, ErrNoFrame
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return vision.Image{}, ErrNoMoreFrames
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++
	c.reads++

	return vision.NewImage(&frame, vision.BGR), nil
}

func (c *MockCamera) SetFPS(fps int) {}
func (c *MockCamera) FPS() int       { return DefaultFPS }

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reads returns how many frames were delivered.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
