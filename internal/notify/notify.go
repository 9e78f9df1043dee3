// Package notify plays audible alerts for presence events. Sound is a pure
// side effect: every failure here is swallowed so it can never affect scan
// correctness.
package notify

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/martinsuchenak/presenced/internal/log"
)

// Notifier receives presence events that warrant an audible signal.
type Notifier interface {
	Arrival()
	Departure()
	// DistanceThreshold fires when a device's estimated distance crosses
	// the calibrated threshold, the distinguished "leaving site" alert.
	DistanceThreshold()
}

// Silent discards all notifications.
type Silent struct{}

func (Silent) Arrival()           {}
func (Silent) Departure()         {}
func (Silent) DistanceThreshold() {}

// Beeper plays tones through whatever the host OS offers: beep(1) on Linux,
// afplay on macOS, a terminal bell everywhere else.
type Beeper struct{}

// NewBeeper creates the platform beeper.
func NewBeeper() *Beeper {
	return &Beeper{}
}

func (b *Beeper) Arrival() {
	b.play(1000, 200)
}

func (b *Beeper) Departure() {
	b.play(500, 200)
}

func (b *Beeper) DistanceThreshold() {
	b.play(300, 500)
}

func (b *Beeper) play(frequencyHz, durationMs int) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("beep", "-f", fmt.Sprint(frequencyHz), "-l", fmt.Sprint(durationMs)).Run()
	case "darwin":
		err = exec.Command("afplay", "/System/Library/Sounds/Ping.aiff").Run()
	case "windows":
		err = exec.Command("powershell", "-c", fmt.Sprintf("[console]::beep(%d,%d)", frequencyHz, durationMs)).Run()
	default:
		_, err = os.Stdout.WriteString("\a")
	}
	if err != nil {
		log.Trace("Alert sound failed", "error", err)
	}
}
