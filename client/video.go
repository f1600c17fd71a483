package client

import "time"

// StartVideoRecording attaches a recorder to the live video decode
// pipeline (§9's FrameSink recorder, the video-side analogue of
// StartAudioRecording). format is "raw" (a self-describing RGB24 stream)
// or "png" (path names a directory of numbered frame files).
func (c *Connection) StartVideoRecording(path, format string) error {
	return c.videoTee.StartRecording(path, format)
}

// StopVideoRecording finalizes the active recording, if any.
func (c *Connection) StopVideoRecording() error {
	return c.videoTee.StopRecording()
}

// RecordVideo is a blocking convenience wrapper: start, wait duration, stop.
func (c *Connection) RecordVideo(path, format string, duration time.Duration) error {
	if err := c.StartVideoRecording(path, format); err != nil {
		return err
	}
	time.Sleep(duration)
	return c.StopVideoRecording()
}
