// Package adb wraps the subset of adb interactions required to bootstrap
// a scrcpy session: executable discovery, device listing/selection, server
// push/start, reverse/forward tunnel establishment with fallback, and the
// USB-to-TCP/IP migration helpers of §4.2a.
package adb

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cowby123/scrcpy-go/internal/errs"
)

// DefaultServerRemotePath is deliberately extension-less: the server is
// disguised as a non-APK file on the device.
const DefaultServerRemotePath = "/data/local/tmp/scrcpy-server"

const SocketNamePrefix = "scrcpy_"

// DefaultPortRangeStart/End bound the reverse-tunnel port search.
const (
	DefaultPortRangeStart = 27183
	DefaultPortRangeEnd   = 27299
)

const TCPPortDefault = 5555

// DeviceType mirrors the three connection kinds adb reports.
type DeviceType string

const (
	DeviceTypeUSB      DeviceType = "usb"
	DeviceTypeTCPIP    DeviceType = "tcpip"
	DeviceTypeEmulator DeviceType = "emulator"
)

// DeviceState mirrors the state column of `adb devices -l`.
type DeviceState string

const (
	StateUnknown      DeviceState = "unknown"
	StateOffline      DeviceState = "offline"
	StateDevice       DeviceState = "device"
	StateUnauthorized DeviceState = "unauthorized"
	StateNoPermission DeviceState = "no permissions"
)

// Device is one entry from `adb devices -l`.
type Device struct {
	Serial string
	State  DeviceState
	Model  string
	Type   DeviceType
}

func (d Device) IsReady() bool        { return d.State == StateDevice }
func (d Device) IsUnauthorized() bool { return d.State == StateUnauthorized }

// Tunnel records how the client and device socket are connected: reverse
// (device dials back to a local listener) or forward (client dials a local
// port that adb proxies to the device's abstract socket).
type Tunnel struct {
	Enabled   bool
	Forward   bool
	LocalPort int
	socket    string
}

// Manager executes adb commands for one adb binary, matching the shape of
// the teacher's own Options-driven Device type, generalized to the fuller
// operation set of §4.1/§4.2a.
type Manager struct {
	adbPath string
	timeout time.Duration
}

// NewManager auto-detects the adb executable unless adbPath is given: the
// ADB env var, then PATH, then a short list of common SDK install
// locations per platform.
func NewManager(adbPath string, timeout time.Duration) (*Manager, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if adbPath == "" {
		found, err := findADBExecutable()
		if err != nil {
			return nil, err
		}
		adbPath = found
	}
	return &Manager{adbPath: adbPath, timeout: timeout}, nil
}

func findADBExecutable() (string, error) {
	if env := os.Getenv("ADB"); env != "" {
		if st, err := os.Stat(env); err == nil && !st.IsDir() {
			return env, nil
		}
	}

	if p, err := exec.LookPath("adb"); err == nil {
		return p, nil
	}

	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "Library/Android/sdk/platform-tools/adb"),
		filepath.Join(home, "Android/Sdk/platform-tools/adb"),
		"/usr/bin/adb",
		"/usr/local/bin/adb",
	}
	if runtime.GOOS == "windows" {
		candidates = append(candidates,
			filepath.Join(home, "AppData/Local/Android/Sdk/platform-tools/adb.exe"),
			`C:\Android\sdk\platform-tools\adb.exe`,
		)
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", errs.ErrAdbNotFound
}

func (m *Manager) run(args []string, timeout time.Duration) (string, string, error) {
	if timeout <= 0 {
		timeout = m.timeout
	}
	cmd := exec.Command(m.adbPath, args...)
	done := make(chan error, 1)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", "", &errs.IoError{Underlying: err}
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			rc := -1
			if ee, ok := err.(*exec.ExitError); ok {
				rc = ee.ExitCode()
			}
			return stdout.String(), stderr.String(), &errs.AdbCommandError{
				Cmd: append([]string{m.adbPath}, args...), RC: rc, Stderr: stderr.String(),
			}
		}
		return stdout.String(), stderr.String(), nil
	case <-time.After(timeout):
		cmd.Process.Kill()
		return "", "", &errs.AdbTimeoutError{Cmd: append([]string{m.adbPath}, args...), Seconds: timeout.Seconds()}
	}
}

func (m *Manager) runOn(serial string, args []string, timeout time.Duration) (string, string, error) {
	full := append([]string{"-s", serial}, args...)
	return m.run(full, timeout)
}

// ListDevices runs `adb devices -l` and parses the output.
func (m *Manager) ListDevices() ([]Device, error) {
	out, _, err := m.run([]string{"devices", "-l"}, 0)
	if err != nil {
		return nil, err
	}
	return parseDevicesOutput(out), nil
}

func parseDevicesOutput(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		d := Device{Serial: parts[0], State: DeviceState(parts[1])}
		for _, p := range parts[2:] {
			if strings.HasPrefix(p, "model:") {
				d.Model = strings.TrimPrefix(p, "model:")
			}
		}
		d.Type = deviceTypeFor(d.Serial)
		devices = append(devices, d)
	}
	return devices
}

func deviceTypeFor(serial string) DeviceType {
	switch {
	case strings.HasPrefix(serial, "emulator-"):
		return DeviceTypeEmulator
	case strings.Contains(serial, ":"):
		return DeviceTypeTCPIP
	default:
		return DeviceTypeUSB
	}
}

// SelectDevice picks a device by serial, or the sole connected device if
// serial is empty.
func (m *Manager) SelectDevice(serial string) (Device, error) {
	devices, err := m.ListDevices()
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, errs.ErrDeviceNotFound
	}

	if serial != "" {
		for _, d := range devices {
			if d.Serial == serial {
				if !d.IsReady() {
					if d.IsUnauthorized() {
						return Device{}, errs.ErrDeviceUnauthorized
					}
					return Device{}, fmt.Errorf("adb: device %s not ready (state=%s)", serial, d.State)
				}
				return d, nil
			}
		}
		return Device{}, errs.ErrDeviceNotFound
	}

	if len(devices) == 1 {
		if !devices[0].IsReady() {
			return Device{}, fmt.Errorf("adb: device not ready (state=%s)", devices[0].State)
		}
		return devices[0], nil
	}

	serials := make([]string, len(devices))
	for i, d := range devices {
		serials[i] = d.Serial
	}
	return Device{}, fmt.Errorf("adb: multiple devices found (%s), specify a serial", strings.Join(serials, ", "))
}

// PushServer uploads the local scrcpy-server file to DefaultServerRemotePath.
func (m *Manager) PushServer(serial, localPath string) error {
	_, _, err := m.runOn(serial, []string{"push", localPath, DefaultServerRemotePath}, 0)
	return err
}

// StartServer launches the server in the background via app_process,
// CLASSPATH pointed at the extension-less pushed file. clientVersion is
// mandatory: the server refuses to start without it.
func (m *Manager) StartServer(serial, clientVersion, params string) error {
	args := []string{
		"-s", serial, "shell",
		"CLASSPATH=" + DefaultServerRemotePath,
		"app_process", "/", "com.genymobile.scrcpy.Server",
		clientVersion,
	}
	if params != "" {
		args = append(args, strings.Fields(params)...)
	}
	cmd := exec.Command(m.adbPath, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return &errs.IoError{Underlying: err}
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("[ADB] server process for %s exited: %v", serial, err)
		}
	}()
	return nil
}

// CreateTunnel tries adb reverse across the port range first, falling back
// to adb forward on any command failure (matching scrcpy's adb_tunnel.c
// preference order).
func (m *Manager) CreateTunnel(serial, socketName string, portStart, portEnd int, forceForward bool) (Tunnel, error) {
	if portStart == 0 {
		portStart, portEnd = DefaultPortRangeStart, DefaultPortRangeEnd
	}

	if !forceForward {
		for port := portStart; port <= portEnd; port++ {
			_, _, err := m.runOn(serial, []string{
				"reverse", "localabstract:" + socketName, "tcp:" + strconv.Itoa(port),
			}, 5*time.Second)
			if err == nil {
				log.Printf("[ADB] tunnel created (reverse): localabstract:%s <-> tcp:%d", socketName, port)
				return Tunnel{Enabled: true, Forward: false, LocalPort: port, socket: socketName}, nil
			}
		}
		log.Printf("[ADB] reverse tunnel failed across port range, trying forward")
	}

	for port := portStart; port <= portEnd; port++ {
		_, _, err := m.runOn(serial, []string{
			"forward", "tcp:" + strconv.Itoa(port), "localabstract:" + socketName,
		}, 5*time.Second)
		if err == nil {
			log.Printf("[ADB] tunnel created (forward): tcp:%d <-> localabstract:%s", port, socketName)
			return Tunnel{Enabled: true, Forward: true, LocalPort: port, socket: socketName}, nil
		}
	}

	return Tunnel{}, fmt.Errorf("adb: no available port in range %d-%d", portStart, portEnd)
}

// RemoveTunnel tears down whichever mode CreateTunnel established.
func (m *Manager) RemoveTunnel(serial string, t Tunnel) error {
	if !t.Enabled {
		return nil
	}
	var args []string
	if t.Forward {
		args = []string{"forward", "--remove", "tcp:" + strconv.Itoa(t.LocalPort)}
	} else {
		args = []string{"reverse", "--remove", "localabstract:" + t.socket}
	}
	_, _, err := m.runOn(serial, args, 5*time.Second)
	return err
}

var wlan0InetRe = regexp.MustCompile(`inet\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)

// GetDeviceIP resolves the device's Wi-Fi IP, preferring wlan0's `ip addr`
// output and falling back to `ip route` parsing. Emulator/VPN-range
// addresses (10.0.2.x, 10.10.10.x) are filtered out.
func (m *Manager) GetDeviceIP(serial string) (string, error) {
	out, _, err := m.runOn(serial, []string{"shell", "ip", "addr", "show", "wlan0"}, 5*time.Second)
	if err == nil {
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			if !strings.Contains(line, "inet ") || strings.Contains(line, "inet6") {
				continue
			}
			if m := wlan0InetRe.FindStringSubmatch(line); m != nil {
				if ip := m[1]; isUsableDeviceIP(ip) {
					return ip, nil
				}
			}
		}
	}

	out, _, err = m.runOn(serial, []string{"shell", "ip", "route"}, 10*time.Second)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.Contains(line, "wlan0") {
			continue
		}
		parts := strings.Fields(line)
		for i, p := range parts {
			if p == "src" && i+1 < len(parts) {
				if ip := parts[i+1]; isUsableDeviceIP(ip) {
					return ip, nil
				}
			}
		}
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Fields(line)
		if len(parts) >= 9 && strings.Contains(line, "wlan0") {
			if ip := parts[8]; isValidIP(ip) {
				return ip, nil
			}
		}
	}
	return "", fmt.Errorf("adb: could not determine device IP from wlan0")
}

func isUsableDeviceIP(ip string) bool {
	if strings.HasPrefix(ip, "10.0.2.") || strings.HasPrefix(ip, "10.10.10.") {
		return false
	}
	return isValidIP(ip)
}

func isValidIP(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// GetADBTCPPort reads service.adb.tcp.port; returns 0, nil if TCP/IP mode
// is not enabled.
func (m *Manager) GetADBTCPPort(serial string) (int, error) {
	out, _, err := m.runOn(serial, []string{"shell", "getprop", "service.adb.tcp.port"}, 5*time.Second)
	if err != nil {
		return 0, nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil || port < 0 || port > 65535 {
		return 0, nil
	}
	return port, nil
}

// EnableTCPIP restarts adbd in TCP/IP mode on the device and waits briefly
// for it to come up, verifying via GetADBTCPPort.
func (m *Manager) EnableTCPIP(serial string, port int) error {
	if port == 0 {
		port = TCPPortDefault
	}
	if _, _, err := m.runOn(serial, []string{"tcpip", strconv.Itoa(port)}, 30*time.Second); err != nil {
		return err
	}
	time.Sleep(2 * time.Second)

	current, _ := m.GetADBTCPPort(serial)
	if current != port {
		return fmt.Errorf("adb: tcpip enable requested but current port is %d", current)
	}
	return nil
}

// ConnectTCPIP connects the adb server to ip:port.
func (m *Manager) ConnectTCPIP(ip string, port int) error {
	if port == 0 {
		port = TCPPortDefault
	}
	out, _, err := m.run([]string{"connect", fmt.Sprintf("%s:%d", ip, port)}, 30*time.Second)
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(out), "connected") {
		return fmt.Errorf("adb: connect response: %s", strings.TrimSpace(out))
	}
	return nil
}

// DisconnectTCPIP disconnects ip:port. A failure (e.g. already
// disconnected) is swallowed, matching the source's best-effort semantics.
func (m *Manager) DisconnectTCPIP(ip string, port int) error {
	if port == 0 {
		port = TCPPortDefault
	}
	m.run([]string{"disconnect", fmt.Sprintf("%s:%d", ip, port)}, 10*time.Second)
	return nil
}

// WaitForTCPIPEnabled polls GetADBTCPPort until expectedPort is reported or
// maxAttempts is exhausted.
func (m *Manager) WaitForTCPIPEnabled(serial string, expectedPort, maxAttempts int, delay time.Duration) bool {
	if maxAttempts <= 0 {
		maxAttempts = 40
	}
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if port, _ := m.GetADBTCPPort(serial); port == expectedPort {
			return true
		}
		if attempt < maxAttempts-1 {
			time.Sleep(delay)
		}
	}
	return false
}

// App is one entry of the `adb shell ... list_apps=true` fallback parser,
// used when listApps is invoked without an active control-socket receiver.
type App struct {
	Name    string
	Package string
	System  bool
}

var appLineRe = regexp.MustCompile(`^([*-])\s*(.+?)\s+(\S+)$`)

// ListAppsViaADB pushes the server and runs it with list_apps=true,
// parsing the "[server] INFO: List of apps:" block from its stdout.
func (m *Manager) ListAppsViaADB(serial, clientVersion string) ([]App, error) {
	if err := m.PushServer(serial, "scrcpy-server"); err != nil {
		return nil, err
	}

	out, _, err := m.runOn(serial, []string{
		"shell", "CLASSPATH=" + DefaultServerRemotePath,
		"app_process", "/", "com.genymobile.scrcpy.Server",
		clientVersion, "list_apps=true",
	}, 60*time.Second)
	if err != nil {
		return nil, err
	}

	var apps []App
	inList := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "List of apps:") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "[server] INFO:"))
		if line == "" {
			continue
		}
		m := appLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		apps = append(apps, App{Name: m[2], Package: m[3], System: m[1] == "*"})
	}
	return apps, nil
}
