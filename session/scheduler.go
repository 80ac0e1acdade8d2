package session

import "time"

// Scheduler abstracts the completion delay of suspended transitions
// (settlement, top-up, login). Production uses timers; tests inject
// ImmediateScheduler to resolve suspensions synchronously.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// TimerScheduler resolves completions on real timers.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// ImmediateScheduler runs completions inline, ignoring the delay.
type ImmediateScheduler struct{}

func (ImmediateScheduler) After(_ time.Duration, fn func()) {
	fn()
}
