package audio

import (
	"math"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Mixer triggers bank sounds on a shared beep.Mixer. It is itself a
// beep.Streamer, so a host hands it to speaker.Play once and keeps calling
// Play from the simulation.
type Mixer struct {
	mu     sync.Mutex
	bank   *Bank
	mixer  *beep.Mixer
	gain   float64
	played int
}

func NewMixer(bank *Bank, gain float64) *Mixer {
	return &Mixer{
		bank:  bank,
		mixer: &beep.Mixer{},
		gain:  gain,
	}
}

// Play queues the sound for h. NoSound and unknown handles are ignored.
func (m *Mixer) Play(h Handle) {
	if h == NoSound {
		return
	}
	s, err := m.bank.Streamer(h)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Add(withGain(s, m.gain))
	m.played++
}

// Played returns how many sounds were queued since creation.
func (m *Mixer) Played() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.played
}

// Active returns how many queued sounds are still playing.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}

func (m *Mixer) Stream(samples [][2]float64) (n int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Stream(samples)
}

func (m *Mixer) Err() error { return nil }

// Clear drops every queued sound.
func (m *Mixer) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Clear()
}

func withGain(s beep.Streamer, gain float64) beep.Streamer {
	if gain <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(gain), Silent: false}
}
