// Package utils collects small cross-cutting helpers shared by every
// session component: panic-safe goroutine launch, session IDs, string
// trimming for log lines.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"runtime/debug"

	"github.com/google/uuid"
)

// GoSafe starts fn on its own goroutine, recovering any panic and logging it
// with a stack trace instead of crashing the process. Every background task
// that package client starts (demuxers, decoders, control writer, control
// receiver, preview loop, standalone screenshot) is launched this way.
func GoSafe(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC][%s] %v\n%s", name, r, debug.Stack())
			}
		}()
		fn()
	}()
}

// TrimString truncates s to max bytes, appending an ellipsis marker when
// truncated, for safe inclusion in log lines.
func TrimString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// GenerateSessionID returns a UUIDv4 string usable as a session
// identifier. Falls back to a raw random hex string if uuid generation fails
// (extremely unlikely — crypto/rand backed), mirroring the teacher's own
// defensive fallback in its ad-hoc ID generator.
func GenerateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Printf("[SESSION] id generation failed: %v", err)
		return ""
	}
	return hex.EncodeToString(b)
}
