// Package client is the public façade over a live scrcpy connection: one
// Connect call builds the ordered session, wires demuxers/decoders/control
// queue/device-message receiver together, and the resulting Connection
// exposes the operations of §4.9 (touch, keys, clipboard, screenshots, app
// list, audio recording) without exposing any of the internal wiring.
package client

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cowby123/scrcpy-go/adb"
	"github.com/cowby123/scrcpy-go/internal/audio"
	"github.com/cowby123/scrcpy-go/internal/decoder"
	"github.com/cowby123/scrcpy-go/internal/delay"
	"github.com/cowby123/scrcpy-go/internal/demux"
	"github.com/cowby123/scrcpy-go/internal/devicemsg"
	"github.com/cowby123/scrcpy-go/internal/input"
	"github.com/cowby123/scrcpy-go/internal/logging"
	"github.com/cowby123/scrcpy-go/internal/metrics"
	"github.com/cowby123/scrcpy-go/internal/preview"
	"github.com/cowby123/scrcpy-go/internal/queue"
	"github.com/cowby123/scrcpy-go/internal/session"
	"github.com/cowby123/scrcpy-go/internal/utils"
	"github.com/cowby123/scrcpy-go/internal/video"
)

// Config bundles a session.Config with the façade-level knobs that decide
// what ancillary pipelines Connect wires up.
type Config struct {
	Session session.Config

	// LazyDecode idles the video decoder (no CPU spent decoding) whenever
	// nothing is consuming frames — no preview window open — and wakes it
	// transiently for Screenshot (§4.10).
	LazyDecode bool

	ShowWindow   bool
	PreviewTitle string
}

// Connection is a live, connected scrcpy session plus everything needed to
// drive it: the control-message queue, multitouch slot allocator, video
// delay buffer, and optional audio recorder / preview window.
type Connection struct {
	adbMgr *adb.Manager
	cfg    Config
	sess   *session.Session

	controlQueue *queue.Queue
	slots        *input.Slots
	controlStop  chan struct{}

	videoDemux   *demux.Video
	videoDecoder *decoder.Video
	videoBuf     *delay.Buffer[decoder.VideoFrame]
	videoTee     *video.TeeSink

	audioDemux   *demux.Audio
	audioDecoder *decoder.Audio
	audioTee     *audio.TeeSink

	receiver *devicemsg.Receiver
	window   *preview.Window

	clipboardSeq uint64
	clipboardCh  chan string
	ackMu        sync.Mutex
	ackChans     map[uint64]chan struct{}
	appListCh    chan []devicemsg.App

	stopped   atomic.Bool
	closeOnce sync.Once
}

// Connect runs the ordered connect sequence (internal/session.Connect) and
// wires every pipeline this façade needs on top of it. Video mirroring is
// always enabled regardless of cfg.Session.Video's zero value.
func Connect(adbMgr *adb.Manager, cfg Config) (*Connection, error) {
	cfg.Session.Video = true

	sess, err := session.Connect(adbMgr, cfg.Session)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		adbMgr:       adbMgr,
		cfg:          cfg,
		sess:         sess,
		controlQueue: queue.New(),
		slots:        input.NewSlots(),
		controlStop:  make(chan struct{}),
		clipboardCh:  make(chan string, 1),
		ackChans:     make(map[uint64]chan struct{}),
		appListCh:    make(chan []devicemsg.App, 1),
	}

	metrics.VideoW.Set(int64(sess.Metadata.Width))
	metrics.VideoH.Set(int64(sess.Metadata.Height))

	c.videoBuf = &delay.Buffer[decoder.VideoFrame]{}
	c.videoTee = video.NewTeeSink(video.NewPlayerSink(c.videoBuf))
	c.videoDemux = demux.NewVideo(sess.Sockets.Video, sess.Metadata.CodecID)
	videoDec, err := decoder.NewVideo(sess.Metadata.CodecID, c.videoTee)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("client: video decoder init failed: %w", err)
	}
	c.videoDecoder = videoDec

	utils.GoSafe("video-demux", c.videoDemux.Run)
	utils.GoSafe("video-decode", func() { c.videoDecoder.DecodeLoop(c.videoDemux.Queue()) })

	if cfg.Session.Audio && sess.Sockets.Audio != nil {
		c.audioDemux = demux.NewAudio(sess.Sockets.Audio)
		if err := c.audioDemux.ReadCodecTag(); err != nil {
			logging.Error("[CLIENT] audio codec tag read failed: %v", err)
			c.audioDemux = nil
		} else {
			c.audioTee = audio.NewTeeSink(nil)
			audioDec, err := decoder.NewAudio(c.audioDemux.CodecID(), c.audioTee)
			if err != nil {
				logging.Error("[CLIENT] audio decoder init failed: %v", err)
			} else {
				c.audioDecoder = audioDec
				utils.GoSafe("audio-demux", c.audioDemux.Run)
				utils.GoSafe("audio-decode", func() { c.audioDecoder.DecodeLoop(c.audioDemux.Queue()) })
			}
		}
	}

	if sess.Sockets.Control != nil {
		c.receiver = devicemsg.NewReceiver(sess.Sockets.Control, devicemsg.Callbacks{
			OnClipboard: func(text string, _ uint64) {
				select {
				case c.clipboardCh <- text:
				default:
				}
			},
			OnClipboardAck: func(seq uint64) {
				c.ackMu.Lock()
				ch := c.ackChans[seq]
				delete(c.ackChans, seq)
				c.ackMu.Unlock()
				if ch != nil {
					close(ch)
				}
			},
			OnAppList: func(apps []devicemsg.App) {
				select {
				case c.appListCh <- apps:
				default:
				}
			},
		})
		utils.GoSafe("ctrl-receiver", c.receiver.Run)
	}
	utils.GoSafe("ctrl-writer", c.controlWriterLoop)

	if cfg.LazyDecode && !cfg.ShowWindow {
		c.videoDecoder.Pause()
	}

	if cfg.ShowWindow {
		title := cfg.PreviewTitle
		if title == "" {
			title = sess.Metadata.DeviceName
		}
		win, err := preview.NewWindow(title, int(sess.Metadata.Width), int(sess.Metadata.Height), c.slots, c.controlQueue)
		if err != nil {
			logging.Error("[CLIENT] preview window init failed: %v", err)
		} else {
			c.window = win
			utils.GoSafe("preview-loop", c.previewLoop)
		}
	}

	return c, nil
}

func (c *Connection) previewLoop() {
	for !c.stopped.Load() {
		if !c.window.Poll() {
			c.stopped.Store(true)
			return
		}
		if f, ok := c.videoBuf.Consume(); ok {
			c.window.PushVideo(f)
		}
		time.Sleep(8 * time.Millisecond)
	}
}

// controlConn returns the socket the control writer should send on: the
// dedicated control socket, or the video socket when control wasn't
// negotiated as its own connection.
func (c *Connection) controlConn() net.Conn {
	if c.sess.Sockets.Control != nil {
		return c.sess.Sockets.Control
	}
	return c.sess.Sockets.Video
}

func (c *Connection) controlWriterLoop() {
	for {
		select {
		case <-c.controlStop:
			return
		default:
		}
		msg, ok := c.controlQueue.Get(100 * time.Millisecond)
		if !ok {
			continue
		}
		conn := c.controlConn()
		if conn == nil {
			continue
		}
		if _, err := conn.Write(msg.Payload); err != nil {
			metrics.CtrlWritesErr.Add(1)
			logging.Error("[CTRL] write failed: %v", err)
		} else {
			metrics.CtrlWritesOK.Add(1)
		}
	}
}

func (c *Connection) IsConnected() bool { return !c.stopped.Load() }
func (c *Connection) IsRunning() bool   { return !c.stopped.Load() }

func (c *Connection) DeviceName() string { return c.sess.Metadata.DeviceName }

// DeviceSerial is the ADB serial (or IP:port for a TCP/IP device) this
// connection was established against; callers key device registries by
// this, not DeviceName, since two devices can share a human-readable name.
func (c *Connection) DeviceSerial() string { return c.sess.Device.Serial }

func (c *Connection) DeviceSize() (width, height uint32) {
	return c.sess.Metadata.Width, c.sess.Metadata.Height
}

// Disconnect tears down every pipeline and closes the session's sockets.
// Safe to call more than once; only the first call has any effect (§8's
// disconnect-idempotence property).
func (c *Connection) Disconnect() {
	c.closeOnce.Do(func() {
		c.stopped.Store(true)
		close(c.controlStop)

		if c.window != nil {
			c.window.Close()
		}
		if c.videoDemux != nil {
			c.videoDemux.Stop()
		}
		if c.videoDecoder != nil {
			c.videoDecoder.Stop()
		}
		if c.audioDemux != nil {
			c.audioDemux.Stop()
		}
		if c.audioDecoder != nil {
			c.audioDecoder.Stop()
		}
		if c.audioTee != nil {
			c.audioTee.StopRecording()
		}
		if c.receiver != nil {
			c.receiver.Stop()
		}
		c.sess.Close()
	})
}
