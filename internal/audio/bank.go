// Package audio resolves sound assets to handles once and triggers them on
// a beep mixer the host drains into its output device.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

const (
	SampleRate = beep.SampleRate(44100)

	resampleQuality = 4
)

var ErrUnknownSound = errors.New("audio: unknown sound handle")

// Handle identifies a buffered sound in a Bank. The zero Handle is "no
// sound" and is ignored by players.
type Handle int

const NoSound Handle = 0

// Bank buffers decoded sounds and hands out handles for them.
type Bank struct {
	mu      sync.Mutex
	format  beep.Format
	names   map[string]Handle
	buffers []*beep.Buffer
}

func NewBank(rate beep.SampleRate) *Bank {
	return &Bank{
		format: beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2},
		names:  make(map[string]Handle),
	}
}

func (b *Bank) Format() beep.Format { return b.format }

// Register buffers s under name. Registering a name twice keeps the first
// sound and returns its handle.
func (b *Bank) Register(name string, s beep.Streamer) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.names[name]; ok {
		return h
	}
	buf := beep.NewBuffer(b.format)
	buf.Append(s)
	b.buffers = append(b.buffers, buf)
	h := Handle(len(b.buffers))
	b.names[name] = h
	return h
}

// LoadWAV decodes a WAV stream, resampling it to the bank's rate.
func (b *Bank) LoadWAV(name string, r io.Reader) (Handle, error) {
	s, format, err := wav.Decode(r)
	if err != nil {
		return NoSound, fmt.Errorf("decode %s: %w", name, err)
	}
	defer s.Close()

	var src beep.Streamer = s
	if format.SampleRate != b.format.SampleRate {
		src = beep.Resample(resampleQuality, format.SampleRate, b.format.SampleRate, s)
	}
	return b.Register(name, src), nil
}

// CreateOrGet returns the handle registered under path, loading the WAV
// file at path the first time it is asked for.
func (b *Bank) CreateOrGet(path string) (Handle, error) {
	if h, ok := b.Lookup(path); ok {
		return h, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return NoSound, err
	}
	defer f.Close()
	return b.LoadWAV(path, f)
}

// FireballSound names the synthesized emission sound.
const FireballSound = "fireball"

// Resolve maps a scene's sound name to a handle: "" is NoSound,
// FireballSound is synthesized and anything else is a WAV path.
func (b *Bank) Resolve(name string) (Handle, error) {
	switch name {
	case "":
		return NoSound, nil
	case FireballSound:
		if h, ok := b.Lookup(name); ok {
			return h, nil
		}
		return b.Register(name, NewFireball(b.format.SampleRate, 1)), nil
	default:
		return b.CreateOrGet(name)
	}
}

func (b *Bank) Lookup(name string) (Handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.names[name]
	return h, ok
}

// Streamer returns a fresh playback cursor over the sound for h.
func (b *Bank) Streamer(h Handle) (beep.StreamSeeker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h <= NoSound || int(h) > len(b.buffers) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSound, h)
	}
	buf := b.buffers[h-1]
	return buf.Streamer(0, buf.Len()), nil
}

// Len returns the length in samples of the sound for h, or 0.
func (b *Bank) Len(h Handle) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h <= NoSound || int(h) > len(b.buffers) {
		return 0
	}
	return b.buffers[h-1].Len()
}
