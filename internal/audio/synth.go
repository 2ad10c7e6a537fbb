package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
)

// FireballDuration is the length of the synthesized emission burst.
const FireballDuration = 400 * time.Millisecond

// fireball is a decaying noise burst over a falling low rumble, used when
// no emission sample is available on disk.
type fireball struct {
	rate     beep.SampleRate
	rng      *rand.Rand
	position int
	duration int
	phase    float64
	lpState  float64
}

// NewFireball returns the synthesized emission burst.
func NewFireball(rate beep.SampleRate, seed int64) beep.Streamer {
	return &fireball{
		rate:     rate,
		rng:      rand.New(rand.NewSource(seed)),
		duration: rate.N(FireballDuration),
	}
}

func (f *fireball) Stream(samples [][2]float64) (n int, ok bool) {
	dt := 1.0 / float64(f.rate)
	for i := range samples {
		if f.position >= f.duration {
			return i, i > 0
		}
		t := float64(f.position) * dt
		env := math.Exp(-t * 9)

		var noise float64
		noise, f.lpState = lpf(f.rng.Float64()*2-1, 1800*env+200, dt, f.lpState)

		freq := 90 * math.Exp(-t*3)
		f.phase += freq * dt
		rumble := triangle(f.phase)

		val := env * (0.65*noise + 0.35*rumble)
		samples[i][0] = val
		samples[i][1] = val
		f.position++
	}
	return len(samples), true
}

func (f *fireball) Err() error { return nil }

// triangle is a smooth band-limited-ish wave in [-1, 1].
func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4.0*math.Abs(p-0.5) - 1.0
}

// lpf is a one-pole low pass filter.
func lpf(sample, cutoff, dt, state float64) (float64, float64) {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	out := state + alpha*(sample-state)
	return out, out
}
