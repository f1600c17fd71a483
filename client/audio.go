package client

import (
	"fmt"
	"time"
)

// StartAudioRecording attaches a WAV recorder to the live audio decode
// pipeline. autoConvertTo is "", "opus" or "mp3".
func (c *Connection) StartAudioRecording(path string, autoConvertTo string) error {
	if c.audioTee == nil {
		return fmt.Errorf("client: audio was not enabled for this connection")
	}
	return c.audioTee.StartRecording(path, autoConvertTo)
}

// StopAudioRecording finalizes the active recording, if any.
func (c *Connection) StopAudioRecording() error {
	if c.audioTee == nil {
		return fmt.Errorf("client: audio was not enabled for this connection")
	}
	return c.audioTee.StopRecording()
}

// RecordAudio is a blocking convenience wrapper: start, wait duration, stop.
func (c *Connection) RecordAudio(path string, autoConvertTo string, duration time.Duration) error {
	if err := c.StartAudioRecording(path, autoConvertTo); err != nil {
		return err
	}
	time.Sleep(duration)
	return c.StopAudioRecording()
}
