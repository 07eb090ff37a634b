package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const defaultSpinnerInterval = 120 * time.Millisecond

type stage int

const (
	stageFetchingManifest stage = iota
	stageProbingAPK
	stageDownloadingAPK
)

// stageReporter shows progress while a command waits on the network.
type stageReporter interface {
	Stage(st stage, detail string)
	Stop()
}

type nopReporter struct{}

func (nopReporter) Stage(stage, string) {}
func (nopReporter) Stop()               {}

type spinnerEvent struct {
	stage  stage
	detail string
}

type stageSpinner struct {
	writer        io.Writer
	delay         time.Duration
	frameInterval time.Duration
	frames        []rune

	events chan spinnerEvent
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once

	mu       sync.Mutex
	frameIdx int
}

func newStageSpinner(w io.Writer, delay time.Duration) *stageSpinner {
	return newCustomStageSpinner(w, delay, defaultSpinnerInterval)
}

func newCustomStageSpinner(w io.Writer, delay, frameInterval time.Duration) *stageSpinner {
	if w == nil {
		w = io.Discard
	}
	sp := &stageSpinner{
		writer:        w,
		delay:         delay,
		frameInterval: frameInterval,
		frames:        []rune{'|', '/', '-', '\\'},
		events:        make(chan spinnerEvent, 8),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go sp.loop()
	return sp
}

func (s *stageSpinner) Stage(st stage, detail string) {
	if s == nil {
		return
	}
	select {
	case <-s.stopCh:
		return
	default:
	}
	select {
	case s.events <- spinnerEvent{stage: st, detail: detail}:
	default:
	}
}

func (s *stageSpinner) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

func (s *stageSpinner) loop() {
	defer close(s.doneCh)

	// Quick requests finish before the delay and never draw anything.
	var delayCh <-chan time.Time
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		delayCh = timer.C
	}

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	var current spinnerEvent
	hasStage := false
	visible := s.delay == 0

	for {
		select {
		case <-s.stopCh:
			if visible {
				s.clearLine()
			}
			return
		case ev := <-s.events:
			current = ev
			hasStage = true
			if visible {
				s.render(current)
			}
		case <-ticker.C:
			if visible && hasStage {
				s.render(current)
			}
		case <-delayCh:
			delayCh = nil
			visible = true
			if hasStage {
				s.render(current)
			}
		}
	}
}

func (s *stageSpinner) render(ev spinnerEvent) {
	frame := s.nextFrame()
	_, _ = fmt.Fprintf(s.writer, "\r\033[2K%c %s", frame, formatStageMessage(ev.stage, ev.detail))
}

func (s *stageSpinner) clearLine() {
	_, _ = fmt.Fprint(s.writer, "\r\033[2K")
}

func (s *stageSpinner) nextFrame() rune {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.frames[s.frameIdx%len(s.frames)]
	s.frameIdx++
	return frame
}

var stageMessages = map[stage]string{
	stageFetchingManifest: "Fetching update manifest...",
	stageProbingAPK:       "Checking apk URL...",
	stageDownloadingAPK:   "Downloading apk...",
}

func formatStageMessage(st stage, detail string) string {
	msg := stageMessages[st]
	if strings.TrimSpace(msg) == "" {
		msg = "Working..."
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return msg
	}
	return fmt.Sprintf("%s - %s", msg, detail)
}
