package core

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/named-data/ndnd/std/ndn"
	"github.com/named-data/ndnd/std/types/priority_queue"
)

// ErrEventCanceled is returned when canceling an event that already ran or was canceled.
var ErrEventCanceled = errors.New("event has already been canceled")

// LoopTimer is a wall-clock timer whose callbacks are handed to post instead
// of running on the timer goroutine. The forwarding thread uses it to keep all
// strategy callbacks on its own goroutine.
type LoopTimer struct {
	post func(func())
}

// NewLoopTimer creates a timer that delivers expired callbacks through post.
func NewLoopTimer(post func(func())) *LoopTimer {
	return &LoopTimer{post: post}
}

func (lt *LoopTimer) Now() time.Time {
	return time.Now()
}

func (lt *LoopTimer) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (lt *LoopTimer) Schedule(d time.Duration, f func()) func() error {
	t := time.AfterFunc(d, func() { lt.post(f) })
	return func() error {
		if t != nil && t.Stop() {
			t = nil
			return nil
		}
		return ErrEventCanceled
	}
}

func (lt *LoopTimer) Nonce() []byte {
	buf := make([]byte, 8)
	n, _ := rand.Read(buf)
	return buf[:n]
}

type manualEvent struct {
	f        func()
	canceled bool
	fired    bool
}

// events scheduled for the same instant, in scheduling order
type manualSlot struct {
	at     int64
	events []*manualEvent
}

// ManualTimer is a discrete-event clock. Time only moves on MoveForward,
// which runs every due callback in time order on the caller's goroutine.
// Callbacks may schedule further events; those run in the same call if due.
type ManualTimer struct {
	now   time.Time
	queue priority_queue.Queue[*manualSlot, int64]
	slots map[int64]*manualSlot
	lock  sync.Mutex
}

// NewManualTimer creates a ManualTimer starting at the Unix epoch.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{
		now:   time.Unix(0, 0).UTC(),
		queue: priority_queue.New[*manualSlot, int64](),
		slots: make(map[int64]*manualSlot),
	}
}

func (tm *ManualTimer) Now() time.Time {
	tm.lock.Lock()
	defer tm.lock.Unlock()
	return tm.now
}

// Sleep advances the clock, since nothing else would.
func (tm *ManualTimer) Sleep(d time.Duration) {
	tm.MoveForward(d)
}

func (tm *ManualTimer) Schedule(d time.Duration, f func()) func() error {
	tm.lock.Lock()
	defer tm.lock.Unlock()

	if d < 0 {
		d = 0
	}
	at := tm.now.Add(d).UnixNano()
	slot, ok := tm.slots[at]
	if !ok {
		slot = &manualSlot{at: at}
		tm.slots[at] = slot
		tm.queue.Push(slot, at)
	}
	event := &manualEvent{f: f}
	slot.events = append(slot.events, event)

	return func() error {
		tm.lock.Lock()
		defer tm.lock.Unlock()
		if event.fired || event.canceled {
			return ErrEventCanceled
		}
		event.canceled = true
		return nil
	}
}

// MoveForward advances the clock by d and runs all events due by then.
func (tm *ManualTimer) MoveForward(d time.Duration) {
	tm.lock.Lock()
	target := tm.now.Add(d)
	tm.lock.Unlock()

	for {
		slot := tm.popDue(target.UnixNano())
		if slot == nil {
			break
		}
		for _, event := range slot.events {
			tm.lock.Lock()
			run := !event.canceled
			event.fired = true
			tm.lock.Unlock()
			if run {
				event.f()
			}
		}
	}

	tm.lock.Lock()
	tm.now = target
	tm.lock.Unlock()
}

// Pending returns the number of events that are neither fired nor canceled.
func (tm *ManualTimer) Pending() int {
	tm.lock.Lock()
	defer tm.lock.Unlock()
	count := 0
	for _, slot := range tm.slots {
		for _, event := range slot.events {
			if !event.fired && !event.canceled {
				count++
			}
		}
	}
	return count
}

func (tm *ManualTimer) popDue(limit int64) *manualSlot {
	tm.lock.Lock()
	defer tm.lock.Unlock()
	if tm.queue.Len() == 0 || tm.queue.PeekPriority() > limit {
		return nil
	}
	slot := tm.queue.Pop()
	delete(tm.slots, slot.at)
	tm.now = time.Unix(0, slot.at).UTC()
	return slot
}

// Nonce returns a fixed nonce.
func (*ManualTimer) Nonce() []byte {
	return []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
}

// Task is a repeating callback with at most one outstanding run.
// The callback re-arms the task by calling Schedule again.
// Its methods are safe to call from any goroutine; fn runs wherever the
// timer delivers it, and a run that fires after Cancel is dropped.
type Task struct {
	timer    ndn.Timer
	interval time.Duration
	fn       func()

	mutex   sync.Mutex
	cancel  func() error
	pending bool
	gen     uint64
}

// NewTask creates an idle task that runs fn interval after each Schedule.
func NewTask(timer ndn.Timer, interval time.Duration, fn func()) *Task {
	return &Task{timer: timer, interval: interval, fn: fn}
}

// Schedule arms the task. It does nothing if a run is already pending.
func (t *Task) Schedule() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.pending {
		return
	}
	t.pending = true
	t.gen++
	gen := t.gen
	t.cancel = t.timer.Schedule(t.interval, func() { t.fire(gen) })
}

func (t *Task) fire(gen uint64) {
	t.mutex.Lock()
	if !t.pending || t.gen != gen {
		t.mutex.Unlock()
		return
	}
	t.pending = false
	t.cancel = nil
	t.mutex.Unlock()

	t.fn()
}

// Pending returns whether a run is outstanding.
func (t *Task) Pending() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.pending
}

// Cancel drops the outstanding run, if any.
func (t *Task) Cancel() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.pending {
		return
	}
	t.pending = false
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

var _ ndn.Timer = (*LoopTimer)(nil)
var _ ndn.Timer = (*ManualTimer)(nil)
