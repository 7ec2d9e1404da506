package jeebie

import (
	"time"

	"github.com/dmgcore/jeebie/jeebie/video"
)

// Default capacities for the bounded hand-off queues between the emulator
// goroutine and the host: one buffered frame slot is enough to pace the
// emulator to the host's vsync, and a couple thousand samples absorb
// host-side audio-callback jitter without ever blocking the emulator on
// the audio path.
const (
	DefaultFrameQueueCapacity = 1
	DefaultAudioQueueCapacity = 4096
)

// FrameTransport hands completed frames from the emulator goroutine to a
// host render loop through a bounded channel. Send blocks when the queue
// is full: the emulator produces one frame per VBlank and stalls until the
// host drains it, which is exactly the paced ~59.73 Hz hand-off the host
// gets "for free" by consuming at vsync.
type FrameTransport struct {
	frames chan *video.FrameBuffer
}

// NewFrameTransport creates a transport with the given queue capacity,
// clamped to at least 1.
func NewFrameTransport(capacity int) *FrameTransport {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameTransport{frames: make(chan *video.FrameBuffer, capacity)}
}

// Send enqueues a completed frame, blocking until the host has room for it.
func (t *FrameTransport) Send(frame *video.FrameBuffer) {
	t.frames <- frame
}

// Receive waits up to timeout for the next frame. On timeout it returns nil
// instead of blocking indefinitely. A non-positive timeout polls without
// waiting.
func (t *FrameTransport) Receive(timeout time.Duration) *video.FrameBuffer {
	if timeout <= 0 {
		select {
		case f := <-t.frames:
			return f
		default:
			return nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-t.frames:
		return f
	case <-timer.C:
		return nil
	}
}

// AudioTransport drains interleaved stereo samples produced by the APU into
// a bounded queue consumed by the host's audio callback. Over/underruns are
// tolerated rather than surfaced as errors: a full queue drops its oldest
// sample to make room for the new one (newest-wins), and an empty queue
// repeats the last delivered sample (last-sample-hold) instead of
// returning silence or blocking the caller.
type AudioTransport struct {
	samples chan int16
	last    int16
}

// NewAudioTransport creates a transport with the given queue capacity,
// clamped to at least 1.
func NewAudioTransport(capacity int) *AudioTransport {
	if capacity < 1 {
		capacity = 1
	}
	return &AudioTransport{samples: make(chan int16, capacity)}
}

// Push enqueues one sample, evicting the oldest queued sample on overflow
// rather than blocking the producer.
func (t *AudioTransport) Push(sample int16) {
	for {
		select {
		case t.samples <- sample:
			return
		default:
		}
		select {
		case <-t.samples:
		default:
			return
		}
	}
}

// Drain returns exactly count samples, holding the last delivered value to
// pad the result when the queue underruns.
func (t *AudioTransport) Drain(count int) []int16 {
	out := make([]int16, count)
	for i := range out {
		select {
		case s := <-t.samples:
			t.last = s
		default:
		}
		out[i] = t.last
	}
	return out
}

// RunAsync drives the emulator loop on the calling goroutine: it should be
// launched with `go d.RunAsync(...)` so the emulator thread and the host
// render/audio loop run on separate goroutines and communicate only
// through frames/audioXport. It returns when stop is closed; the check
// happens at each frame boundary, the only cooperative suspension point
// besides the frame queue itself being full.
func (d *DMG) RunAsync(frames *FrameTransport, audioXport *AudioTransport, samplesPerFrame int, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := d.RunUntilFrame(); err != nil {
			return err
		}

		frames.Send(d.GetCurrentFrame().Clone())

		if audioXport != nil && samplesPerFrame > 0 {
			for _, s := range d.GetAudioProvider().GetSamples(samplesPerFrame) {
				audioXport.Push(s)
			}
		}
	}
}
