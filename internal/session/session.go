// Package session builds a live scrcpy connection: device selection, SCID
// generation, tunnel setup, server launch, the strict video/audio/control
// socket establishment order, and the metadata handshake of §4.2.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/cowby123/scrcpy-go/adb"
	"github.com/cowby123/scrcpy-go/internal/errs"
)

// Config mirrors §3's Session config data model.
type Config struct {
	DeviceSerial string

	Video   bool
	Audio   bool
	Control bool

	Codec      string // "h264" | "h265" | "av1"
	AudioCodec string // "raw" | "opus" | "aac" | "fdkAac" | "flac"

	BitRate int
	MaxFps  int

	StayAwake         bool
	ClipboardAutosync bool

	ForceForward bool

	Tcpip               bool
	TcpipIP             string
	TcpipPort           int
	TcpipAutoDisconnect bool

	ConnectionTimeout time.Duration
	SocketTimeout     time.Duration

	ClientVersion string
	ServerParams  string
}

func (c Config) normalize() Config {
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 10 * time.Second
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = 10 * time.Second
	}
	if c.ClientVersion == "" {
		c.ClientVersion = "3.3.2"
	}
	return c
}

// Metadata is what the video socket's handshake header carries.
type Metadata struct {
	DeviceName string
	CodecID    uint32
	Width      uint32
	Height     uint32
}

// Sockets holds the up-to-three TCP connections established for a session,
// in the strict order they were opened (video, audio, control).
type Sockets struct {
	Video   net.Conn
	Audio   net.Conn
	Control net.Conn
}

// Session is the live result of Connect: the opened sockets, the metadata
// read off the video socket, and enough bookkeeping to clean everything up
// on disconnect.
type Session struct {
	Cfg      Config
	Device   adb.Device
	Tunnel   adb.Tunnel
	SCID     string
	Sockets  Sockets
	Metadata Metadata

	forwardMode bool
	adbMgr      *adb.Manager
}

// GenerateSCID draws a uniform 31-bit integer and renders it as an 8-digit
// lowercase hex socket-name suffix: "scrcpy_XXXXXXXX".
func GenerateSCID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", &errs.IoError{Underlying: err}
	}
	v := binary.BigEndian.Uint32(b[:]) & 0x7FFFFFFF // 31 bits
	return fmt.Sprintf("%s%08x", adb.SocketNamePrefix, v), nil
}

// Connect runs the ordered connect sequence of §4.2. On any failure it
// cleans up everything it opened before returning the error.
func Connect(mgr *adb.Manager, cfg Config) (*Session, error) {
	cfg = cfg.normalize()

	device, err := mgr.SelectDevice(cfg.DeviceSerial)
	if err != nil {
		return nil, err
	}

	if cfg.Tcpip && device.Type == adb.DeviceTypeUSB {
		if err := migrateToTCPIP(mgr, &device, &cfg); err != nil {
			log.Printf("[SESSION] tcpip migration failed, continuing over USB: %v", err)
		}
	}

	if err := mgr.PushServer(device.Serial, "scrcpy-server"); err != nil {
		return nil, err
	}

	scid, err := GenerateSCID()
	if err != nil {
		return nil, err
	}
	socketName := scid

	tunnel, err := mgr.CreateTunnel(device.Serial, socketName, 0, 0, cfg.ForceForward)
	if err != nil {
		return nil, err
	}

	s := &Session{Cfg: cfg, Device: device, Tunnel: tunnel, SCID: scid, forwardMode: tunnel.Forward, adbMgr: mgr}

	params := buildServerParams(scid, tunnel.Forward, cfg)
	if err := mgr.StartServer(device.Serial, cfg.ClientVersion, params); err != nil {
		mgr.RemoveTunnel(device.Serial, tunnel)
		return nil, err
	}

	if err := s.establishSockets(socketName); err != nil {
		s.cleanup()
		return nil, err
	}

	if err := s.readMetadata(); err != nil {
		s.cleanup()
		return nil, err
	}

	return s, nil
}

func buildServerParams(scid string, forward bool, cfg Config) string {
	p := fmt.Sprintf("scid=%s tunnel_forward=%t audio=%t control=%t clipboard_autosync=%t log_level=info",
		scid, forward, cfg.Audio, cfg.Control, cfg.ClipboardAutosync)
	if cfg.BitRate > 0 {
		p += fmt.Sprintf(" video_bit_rate=%d", cfg.BitRate)
	}
	if cfg.MaxFps > 0 {
		p += fmt.Sprintf(" max_fps=%d", cfg.MaxFps)
	}
	if cfg.StayAwake {
		p += " stay_awake=true"
	}
	return p
}

// establishSockets opens video, then audio (if enabled), then control, in
// that strict order, per §4.2 step 6.
func (s *Session) establishSockets(socketName string) error {
	if s.forwardMode {
		return s.establishForward(socketName)
	}
	return s.establishReverse(socketName)
}

func (s *Session) establishForward(socketName string) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.Tunnel.LocalPort)

	video, err := dialWithRetry(addr, 100, 100*time.Millisecond)
	if err != nil {
		return err
	}
	var dummy [1]byte
	if _, err := io.ReadFull(video, dummy[:]); err != nil {
		video.Close()
		return &errs.ProtocolError{Reason: "server refused connection (no dummy byte)"}
	}
	s.Sockets.Video = video

	if s.Cfg.Audio {
		audio, err := dialWithRetry(addr, 100, 100*time.Millisecond)
		if err != nil {
			return err
		}
		setNoDelay(audio)
		s.Sockets.Audio = audio
	}

	if s.Cfg.Control {
		control, err := dialWithRetry(addr, 100, 100*time.Millisecond)
		if err != nil {
			return err
		}
		setNoDelay(control)
		s.Sockets.Control = control
	}
	return nil
}

func (s *Session) establishReverse(socketName string) error {
	video, err := acceptOneReverse(socketName, s.Cfg.SocketTimeout)
	if err != nil {
		return err
	}
	s.Sockets.Video = video

	if s.Cfg.Audio {
		audio, err := acceptOneReverse(socketName+"_audio", s.Cfg.SocketTimeout)
		if err != nil {
			return err
		}
		setNoDelay(audio)
		s.Sockets.Audio = audio
	}

	if s.Cfg.Control {
		control, err := acceptOneReverse(socketName+"_control", s.Cfg.SocketTimeout)
		if err != nil {
			return err
		}
		setNoDelay(control)
		s.Sockets.Control = control
	}
	return nil
}

// acceptOneReverse binds an ephemeral local listener, asks adb reverse to
// route name to it, then waits once for the device to connect.
func acceptOneReverse(name string, timeout time.Duration) (net.Conn, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, &errs.IoError{Underlying: err}
	}
	defer ln.Close()

	if l, ok := ln.(*net.TCPListener); ok {
		l.SetDeadline(time.Now().Add(timeout))
	}
	conn, err := ln.Accept()
	if err != nil {
		return nil, &errs.IoError{Underlying: err}
	}
	return conn, nil
}

func dialWithRetry(addr string, attempts int, interval time.Duration) (net.Conn, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := net.DialTimeout("tcp", addr, interval)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(interval)
	}
	return nil, fmt.Errorf("session: could not connect to %s: %w", addr, lastErr)
}

func setNoDelay(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
}

// readMetadata reads the fixed handshake header off the video socket:
// 64-byte NUL-padded device name, u32 codecId, u32 width, u32 height.
func (s *Session) readMetadata() error {
	var nameBuf [64]byte
	if _, err := io.ReadFull(s.Sockets.Video, nameBuf[:]); err != nil {
		return &errs.IncompleteReadError{Expected: 64, Got: 0}
	}
	var rest [12]byte
	if _, err := io.ReadFull(s.Sockets.Video, rest[:]); err != nil {
		return &errs.IncompleteReadError{Expected: 12, Got: 0}
	}

	s.Metadata = Metadata{
		DeviceName: trimNuls(nameBuf[:]),
		CodecID:    binary.BigEndian.Uint32(rest[0:4]),
		Width:      binary.BigEndian.Uint32(rest[4:8]),
		Height:     binary.BigEndian.Uint32(rest[8:12]),
	}
	return nil
}

func trimNuls(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// Close closes every opened socket and, unless TcpipAutoDisconnect is set,
// leaves the TCP/IP migration route (if any) intact per §4.2a.
func (s *Session) Close() {
	s.cleanup()
	if s.Cfg.TcpipAutoDisconnect && s.Cfg.TcpipIP != "" {
		s.adbMgr.DisconnectTCPIP(s.Cfg.TcpipIP, s.Cfg.TcpipPort)
	}
}

func (s *Session) cleanup() {
	if s.Sockets.Video != nil {
		s.Sockets.Video.Close()
	}
	if s.Sockets.Audio != nil {
		s.Sockets.Audio.Close()
	}
	if s.Sockets.Control != nil {
		s.Sockets.Control.Close()
	}
	if s.Tunnel.Enabled {
		s.adbMgr.RemoveTunnel(s.Device.Serial, s.Tunnel)
	}
}

// migrateToTCPIP enables TCP/IP mode on a USB-connected device and connects
// to it in parallel, without disturbing the existing USB route (§4.2a).
func migrateToTCPIP(mgr *adb.Manager, device *adb.Device, cfg *Config) error {
	ip := cfg.TcpipIP
	if ip == "" {
		resolved, err := mgr.GetDeviceIP(device.Serial)
		if err != nil {
			return err
		}
		ip = resolved
	}
	port := cfg.TcpipPort
	if port == 0 {
		port = adb.TCPPortDefault
	}

	if existing, _ := mgr.GetADBTCPPort(device.Serial); existing != port {
		if err := mgr.EnableTCPIP(device.Serial, port); err != nil {
			return err
		}
		if !mgr.WaitForTCPIPEnabled(device.Serial, port, 40, 250*time.Millisecond) {
			return fmt.Errorf("session: tcpip mode did not come up on port %d", port)
		}
	}

	if err := mgr.ConnectTCPIP(ip, port); err != nil {
		return err
	}
	cfg.TcpipIP, cfg.TcpipPort = ip, port

	// Both the USB serial and "ip:port" are now valid ADB routes to the
	// same device; subsequent calls keep using device.Serial (USB) until
	// the caller decides to switch, preventing "more than one device"
	// ambiguity from an uncoordinated serial swap.
	log.Printf("[SESSION] tcpip route added at %s:%d alongside usb serial %s", ip, port, device.Serial)
	return nil
}
