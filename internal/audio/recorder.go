// Package audio implements the recording tee of §4.9a: a sink that
// duplicates decoded PCM to a live player and a WAV file recorder, with
// optional post-close transcode to Opus/MP3.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"sync"

	"github.com/cowby123/scrcpy-go/internal/decoder"
	"github.com/cowby123/scrcpy-go/internal/logging"
)

// TeeSink pushes every frame to a live player first (latency-sensitive),
// then to a recorder, mirroring the push order §4.9a requires. Player may
// be nil (no local playback, recording only).
type TeeSink struct {
	mu       sync.Mutex
	player   decoder.Sink
	recorder *WAVRecorder
}

func NewTeeSink(player decoder.Sink) *TeeSink {
	return &TeeSink{player: player}
}

func (t *TeeSink) PushAudio(f decoder.AudioFrame) {
	t.mu.Lock()
	player, recorder := t.player, t.recorder
	t.mu.Unlock()

	if player != nil {
		player.PushAudio(f)
	}
	if recorder != nil {
		if err := recorder.Write(f); err != nil {
			logging.Error("[AUDIO] recorder write failed: %v", err)
		}
	}
}

// StartRecording attaches a recorder; only one recording may be active.
func (t *TeeSink) StartRecording(path string, autoConvertTo string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recorder != nil {
		return fmt.Errorf("recording already in progress")
	}
	r, err := NewWAVRecorder(path, autoConvertTo)
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

// WAVRecorder writes IEEE-float (format=3) 32-bit PCM WAV, detecting
// sample rate and channel count from the first frame it sees. The RIFF and
// data chunk sizes are placeholders until Close patches them.
type WAVRecorder struct {
	mu            sync.Mutex
	f             *os.File
	path          string
	autoConvertTo string // "", "opus", "mp3"

	wroteHeader bool
	sampleRate  int
	channels    int
	dataBytes   int64
}

func NewWAVRecorder(path string, autoConvertTo string) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &WAVRecorder{f: f, path: path, autoConvertTo: autoConvertTo}, nil
}

func (r *WAVRecorder) Write(frame decoder.AudioFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.wroteHeader {
		r.sampleRate = frame.SampleRate
		r.channels = frame.Channels
		if r.sampleRate <= 0 {
			r.sampleRate = 48000
		}
		if r.channels <= 0 {
			r.channels = 2
		}
		if err := r.writeHeader(); err != nil {
			return err
		}
		r.wroteHeader = true
	}

	buf := make([]byte, len(frame.PCM)*4)
	for i, s := range frame.PCM {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	n, err := r.f.Write(buf)
	r.dataBytes += int64(n)
	return err
}

// writeHeader writes the 44-byte canonical WAV header with zeroed size
// fields; Close() seeks back and patches them.
func (r *WAVRecorder) writeHeader() error {
	const bitsPerSample = 32
	byteRate := r.sampleRate * r.channels * bitsPerSample / 8
	blockAlign := r.channels * bitsPerSample / 8

	hdr := make([]byte, 44)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0) // patched on close
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 3) // format=3, IEEE float
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(r.channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(r.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0) // patched on close

	_, err := r.f.Write(hdr)
	return err
}

// Close patches the RIFF/data size fields, closes the file, and — if
// autoConvertTo is set — transcodes the WAV to Opus/MP3 via ffmpeg and
// deletes the temporary WAV afterward.
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.wroteHeader {
		r.f.Close()
		os.Remove(r.path)
		return nil
	}

	riffSize := uint32(36 + r.dataBytes)
	if _, err := r.f.Seek(4, 0); err != nil {
		return err
	}
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], riffSize)
	if _, err := r.f.Write(sz[:]); err != nil {
		return err
	}
	if _, err := r.f.Seek(40, 0); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sz[:], uint32(r.dataBytes))
	if _, err := r.f.Write(sz[:]); err != nil {
		return err
	}
	if err := r.f.Close(); err != nil {
		return err
	}

	if r.autoConvertTo == "" {
		return nil
	}
	return r.transcode()
}

func (r *WAVRecorder) transcode() error {
	var outPath, codecArgs string
	switch r.autoConvertTo {
	case "opus":
		outPath = replaceExt(r.path, ".opus")
		codecArgs = "libopus"
	case "mp3":
		outPath = replaceExt(r.path, ".mp3")
		codecArgs = "libmp3lame"
	default:
		return fmt.Errorf("unsupported autoConvertTo codec %q", r.autoConvertTo)
	}

	cmd := exec.Command("ffmpeg", "-y", "-i", r.path, "-acodec", codecArgs, outPath)
	if err := cmd.Run(); err != nil {
		logging.Error("[AUDIO] transcode to %s failed: %v", r.autoConvertTo, err)
		return err
	}
	return os.Remove(r.path)
}

func replaceExt(path, newExt string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[:i] + newExt
		}
		if path[i] == '/' {
			break
		}
	}
	return path + newExt
}
