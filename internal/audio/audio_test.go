package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

func drain(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok || n == 0 {
			return total
		}
	}
}

func TestFireballRangeAndLength(t *testing.T) {
	s := NewFireball(SampleRate, 1)
	buf := make([][2]float64, 1024)
	total := 0
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			v := buf[i][0]
			if math.IsNaN(v) || v < -1 || v > 1 {
				t.Fatalf("sample %d out of range: %f", total+i, v)
			}
			if buf[i][0] != buf[i][1] {
				t.Fatalf("sample %d not mono: %v", total+i, buf[i])
			}
		}
		total += n
		if !ok {
			break
		}
	}

	if want := SampleRate.N(FireballDuration); total != want {
		t.Errorf("streamed %d samples, want %d", total, want)
	}
	if s.Err() != nil {
		t.Errorf("unexpected error: %v", s.Err())
	}
}

func TestBankRegister(t *testing.T) {
	bank := NewBank(SampleRate)

	h := bank.Register("boom", NewFireball(SampleRate, 1))
	if h == NoSound {
		t.Fatal("expected a handle")
	}
	if again := bank.Register("boom", NewFireball(SampleRate, 2)); again != h {
		t.Errorf("re-register returned %d, want %d", again, h)
	}
	if got, ok := bank.Lookup("boom"); !ok || got != h {
		t.Errorf("Lookup = %d, %v", got, ok)
	}
	if bank.Len(h) != SampleRate.N(FireballDuration) {
		t.Errorf("Len = %d", bank.Len(h))
	}

	if _, err := bank.Streamer(NoSound); !errors.Is(err, ErrUnknownSound) {
		t.Errorf("Streamer(NoSound) err = %v", err)
	}
	if _, err := bank.Streamer(h + 7); !errors.Is(err, ErrUnknownSound) {
		t.Errorf("Streamer(unknown) err = %v", err)
	}
}

func TestBankCreateOrGetWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burst.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, NewFireball(format.SampleRate, 3), format); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	bank := NewBank(SampleRate)
	h, err := bank.CreateOrGet(path)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if again, _ := bank.CreateOrGet(path); again != h {
		t.Errorf("second CreateOrGet returned %d, want %d", again, h)
	}
	// resampled from 22050 to 44100: roughly twice as many samples
	want := SampleRate.N(FireballDuration)
	if got := bank.Len(h); math.Abs(float64(got-want)) > float64(want)/50 {
		t.Errorf("Len = %d, want about %d", got, want)
	}

	if _, err := bank.CreateOrGet(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMixerPlay(t *testing.T) {
	bank := NewBank(SampleRate)
	h := bank.Register("boom", NewFireball(SampleRate, 1))
	m := NewMixer(bank, 0.5)

	m.Play(NoSound)
	m.Play(h + 10)
	if m.Played() != 0 {
		t.Errorf("ignored handles were counted: %d", m.Played())
	}

	m.Play(h)
	m.Play(h)
	if m.Played() != 2 || m.Active() != 2 {
		t.Errorf("Played=%d Active=%d, want 2/2", m.Played(), m.Active())
	}

	buf := make([][2]float64, 1024)
	for i := 0; i < SampleRate.N(FireballDuration)/1024+2; i++ {
		m.Stream(buf)
	}
	if m.Active() != 0 {
		t.Errorf("finished sounds still active: %d", m.Active())
	}

	m.Play(h)
	m.Clear()
	if m.Active() != 0 {
		t.Error("Clear left sounds queued")
	}
	if m.Err() != nil {
		t.Error("unexpected mixer error")
	}
}

func TestFireballDrainsOnce(t *testing.T) {
	s := NewFireball(SampleRate, 9)
	first := drain(s)
	if second := drain(s); second != 0 || first == 0 {
		t.Errorf("first=%d second=%d", first, second)
	}
}

func TestBankResolve(t *testing.T) {
	bank := NewBank(SampleRate)

	if h, err := bank.Resolve(""); err != nil || h != NoSound {
		t.Errorf("Resolve(\"\") = %v, %v", h, err)
	}

	h1, err := bank.Resolve(FireballSound)
	if err != nil || h1 == NoSound {
		t.Fatalf("Resolve(fireball) = %v, %v", h1, err)
	}
	h2, _ := bank.Resolve(FireballSound)
	if h1 != h2 {
		t.Errorf("fireball resolved twice to %v and %v", h1, h2)
	}
	if bank.Len(h1) != SampleRate.N(FireballDuration) {
		t.Errorf("fireball length = %d", bank.Len(h1))
	}

	if _, err := bank.Resolve(filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}
