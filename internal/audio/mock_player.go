package audio

import (
	"sync"
	"time"
)

// MockPlayer is a Sink that produces no sound. Its clock only moves when
// Advance is called.
type MockPlayer struct {
	mu       sync.Mutex
	clip     *Clip
	position time.Duration
	paused   bool
	closed   bool
	playErr  error

	plays   int
	pauses  int
	resumes int
	stops   int
}

// NewMockPlayer creates a mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records clip and rewinds the clock.
func (m *MockPlayer) Play(clip *Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.playErr != nil {
		return m.playErr
	}
	m.plays++
	m.clip = clip
	m.position = 0
	m.paused = false
	return nil
}

// Pause stops the clock.
func (m *MockPlayer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clip != nil && !m.paused {
		m.pauses++
		m.paused = true
	}
}

// Resume restarts the clock.
func (m *MockPlayer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clip != nil && m.paused {
		m.resumes++
		m.paused = false
	}
}

// Stop drops the clip.
func (m *MockPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clip != nil {
		m.stops++
	}
	m.clip = nil
	m.position = 0
	m.paused = false
}

// Position returns the clock.
func (m *MockPlayer) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Finished reports whether the clock reached the end of the clip.
func (m *MockPlayer) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clip != nil && !m.paused && m.position >= m.clip.Duration()
}

// Close makes later Play calls fail.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.clip = nil
	return nil
}

// Advance moves the clock forward unless playback is paused or stopped.
func (m *MockPlayer) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clip == nil || m.paused {
		return
	}
	m.position += d
	if total := m.clip.Duration(); m.position > total {
		m.position = total
	}
}

// SetPlayError makes Play fail with err.
func (m *MockPlayer) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// Clip returns the clip being played.
func (m *MockPlayer) Clip() *Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clip
}

// Counts returns how many times each control took effect.
func (m *MockPlayer) Counts() (plays, pauses, resumes, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays, m.pauses, m.resumes, m.stops
}
