package video

import (
	"fmt"
	"sync"

	"github.com/cowby123/scrcpy-go/internal/decoder"
	"github.com/cowby123/scrcpy-go/internal/delay"
	"github.com/cowby123/scrcpy-go/internal/logging"
)

// PlayerSink adapts the façade's delay.Buffer (read by the preview window
// and Screenshot) to decoder.VideoSink, so it can sit behind a TeeSink
// alongside a Recorder instead of being the decoder's sole destination.
type PlayerSink struct {
	buf *delay.Buffer[decoder.VideoFrame]
}

func NewPlayerSink(buf *delay.Buffer[decoder.VideoFrame]) *PlayerSink {
	return &PlayerSink{buf: buf}
}

func (p *PlayerSink) PushVideo(f decoder.VideoFrame) { p.buf.Push(f) }

// TeeSink pushes every decoded frame to the live player first (latency-
// sensitive), then to a recorder, mirroring internal/audio.TeeSink's push
// order for §9's FrameSink composite.
type TeeSink struct {
	mu       sync.Mutex
	player   decoder.VideoSink
	recorder *Recorder
}

func NewTeeSink(player decoder.VideoSink) *TeeSink {
	return &TeeSink{player: player}
}

func (t *TeeSink) PushVideo(f decoder.VideoFrame) {
	t.mu.Lock()
	player, recorder := t.player, t.recorder
	t.mu.Unlock()

	if player != nil {
		player.PushVideo(f)
	}
	if recorder != nil {
		if err := recorder.Write(f); err != nil {
			logging.Error("[VIDEO] recorder write failed: %v", err)
		}
	}
}

// StartRecording attaches a recorder; only one recording may be active.
func (t *TeeSink) StartRecording(path, format string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recorder != nil {
		return fmt.Errorf("video: recording already in progress")
	}
	r, err := NewRecorder(path, format)
	if err != nil {
		return err
	}
	t.recorder = r
	return nil
}

// StopRecording closes and finalizes the active recording, if any.
func (t *TeeSink) StopRecording() error {
	t.mu.Lock()
	r := t.recorder
	t.recorder = nil
	t.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Close()
}
