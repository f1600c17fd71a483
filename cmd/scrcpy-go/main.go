// Command scrcpy-go is the process entrypoint: it registers ADB/session
// flags in the teacher's own style (registerADBFlags's closure shape,
// carried from streaming.go), brings up a single client.Connection for the
// requested device, optionally records the mirrored video/audio to disk,
// and serves the teacher's debug surface (expvar, pprof, stack dump) over
// a minimal gin router.
package main

import (
	"context"
	"expvar"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cowby123/scrcpy-go/adb"
	"github.com/cowby123/scrcpy-go/client"
	"github.com/cowby123/scrcpy-go/internal/logging"
	"github.com/cowby123/scrcpy-go/internal/session"
)

func registerADBFlags(fs *flag.FlagSet) func() *adb.Manager {
	adbPath := fs.String("adb-path", "", "path to the adb binary (empty: search $PATH)")
	timeout := fs.Duration("adb-timeout", 10*time.Second, "timeout for adb command invocations")
	return func() *adb.Manager {
		mgr, err := adb.NewManager(*adbPath, *timeout)
		if err != nil {
			log.Fatalf("[ADB] %v", err)
		}
		return mgr
	}
}

func registerSessionFlags(fs *flag.FlagSet) func(serial string) session.Config {
	codec := fs.String("codec", "h264", "video codec: h264, h265 or av1")
	audioCodec := fs.String("audio-codec", "", "audio codec: raw, opus, aac, fdkAac, flac (empty disables audio)")
	bitRate := fs.Int("bit-rate", 8_000_000, "video bit rate in bits/second")
	maxFps := fs.Int("max-fps", 0, "cap encoder frame rate (0: unlimited)")
	stayAwake := fs.Bool("stay-awake", true, "keep the device screen on while mirroring")
	clipboardSync := fs.Bool("clipboard-autosync", true, "mirror clipboard changes automatically")
	noControl := fs.Bool("no-control", false, "do not negotiate a control socket")
	tcpip := fs.Bool("tcpip", false, "migrate a USB device to a parallel TCP/IP route")
	tcpipPort := fs.Int("tcpip-port", adb.TCPPortDefault, "TCP/IP port to use for the migration")

	return func(serial string) session.Config {
		return session.Config{
			DeviceSerial:      serial,
			Video:             true,
			Audio:             *audioCodec != "",
			Control:           !*noControl,
			Codec:             *codec,
			AudioCodec:        *audioCodec,
			BitRate:           *bitRate,
			MaxFps:            *maxFps,
			StayAwake:         *stayAwake,
			ClipboardAutosync: *clipboardSync,
			Tcpip:             *tcpip,
			TcpipPort:         *tcpipPort,
		}
	}
}

// runDebugServer serves expvar/pprof/stack on listenAddr until ctx is
// canceled. Empty listenAddr disables the surface entirely.
func runDebugServer(ctx context.Context, listenAddr string) {
	if listenAddr == "" {
		return
	}
	router := gin.Default()
	router.GET("/debug/stack", func(c *gin.Context) {
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf[:n])
	})
	router.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	router.GET("/debug/pprof/*any", gin.WrapF(pprof.Index))

	srv := &http.Server{Addr: listenAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[HTTP] debug surface listening on %s (/debug/pprof, /debug/vars, /debug/stack)", listenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[HTTP] %v", err)
	}
}

func main() {
	fs := flag.CommandLine
	debugListenAddr := fs.String("debug-listen", "", "HTTP listen address for the debug surface (empty disables it)")
	lazyDecode := fs.Bool("lazy-decode", false, "pause video decoders when no consumer is attached")
	showWindow := fs.Bool("window", false, "open a local SDL preview window")
	logLevel := fs.String("log-level", "info", "debug, info, error or silent")
	device0Serial := fs.String("serial", "", "device serial to mirror at startup (empty: pick the sole connected device)")
	recordVideo := fs.String("record-video", "", "record mirrored video to this path (empty disables)")
	recordVideoFormat := fs.String("record-video-format", "raw", "video recording format: raw or png")
	recordAudio := fs.String("record-audio", "", "record mirrored audio to this WAV path (empty disables)")
	recordAudioConvert := fs.String("record-audio-convert", "", "transcode the recorded WAV to opus or mp3 on close")

	adbFlags := registerADBFlags(fs)
	sessFlags := registerSessionFlags(fs)
	flag.Parse()

	switch *logLevel {
	case "debug":
		logging.SetLevel(logging.LevelDebug)
	case "error":
		logging.SetLevel(logging.LevelError)
	case "silent":
		logging.SetLevel(logging.LevelSilent)
	default:
		logging.SetLevel(logging.LevelInfo)
	}

	adbMgr := adbFlags()

	cfg := client.Config{
		Session:      sessFlags(*device0Serial),
		LazyDecode:   *lazyDecode,
		ShowWindow:   *showWindow,
		PreviewTitle: "scrcpy-go",
	}

	conn, err := client.Connect(adbMgr, cfg)
	if err != nil {
		log.Fatalf("[MAIN] connect failed: %v", err)
	}
	defer conn.Disconnect()

	if *recordVideo != "" {
		if err := conn.StartVideoRecording(*recordVideo, *recordVideoFormat); err != nil {
			log.Printf("[MAIN] video recording not started: %v", err)
		} else {
			defer conn.StopVideoRecording()
		}
	}
	if *recordAudio != "" {
		if err := conn.StartAudioRecording(*recordAudio, *recordAudioConvert); err != nil {
			log.Printf("[MAIN] audio recording not started: %v", err)
		} else {
			defer conn.StopAudioRecording()
		}
	}

	log.Printf("[MAIN] mirroring %s (%s)", conn.DeviceSerial(), conn.DeviceName())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runDebugServer(ctx, *debugListenAddr)

	for conn.IsRunning() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}
