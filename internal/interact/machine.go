package interact

import (
	"math"

	"github.com/looplab/fsm"
)

// timeEpsilon absorbs float drift when comparing accumulated tick time
// against deadlines and timeouts.
const timeEpsilon = 1e-9

// MachineConfig tunes the input state machine.
type MachineConfig struct {
	// MashIdleTimeout is how long a mash session may sit at zero count
	// without a press before it fails.
	MashIdleTimeout float64
}

// DefaultMachineConfig returns the standard machine tuning.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{MashIdleTimeout: 1.0}
}

func (c MachineConfig) normalized() MachineConfig {
	if c.MashIdleTimeout <= 0 {
		c.MashIdleTimeout = DefaultMachineConfig().MashIdleTimeout
	}
	return c
}

// CommitFunc gates the success path of an interaction. Returning false turns
// the commit into a failure.
type CommitFunc func(target Interactable, mode Type) bool

// Machine turns press/release edges and per-tick updates into facet
// lifecycle calls for one controlling session. It is not safe for concurrent
// use; the owning session drives it from its tick.
type Machine struct {
	cfg   MachineConfig
	actor Actor

	now     float64
	focus   Interactable
	saved   Interactable
	pressed bool
	blocked bool

	rec       Record
	lifecycle *fsm.FSM

	indicator Indicator
	commit    CommitFunc
	observer  Observer
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithIndicator installs the HUD progress indicator.
func WithIndicator(indicator Indicator) MachineOption {
	return func(m *Machine) {
		if indicator != nil {
			m.indicator = indicator
		}
	}
}

// WithCommit installs the commit gate run before success hooks.
func WithCommit(commit CommitFunc) MachineOption {
	return func(m *Machine) {
		m.commit = commit
	}
}

// WithObserver installs the transition observer.
func WithObserver(observer Observer) MachineOption {
	return func(m *Machine) {
		m.observer = observer
	}
}

// NewMachine builds an idle machine for actor.
func NewMachine(actor Actor, cfg MachineConfig, opts ...MachineOption) *Machine {
	m := &Machine{
		cfg:       cfg.normalized(),
		actor:     actor,
		lifecycle: newLifecycle(),
		indicator: nopIndicator{},
		rec:       Record{State: StateIdle},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Record returns a copy of the active record.
func (m *Machine) Record() Record { return m.rec }

// Now returns the machine clock in seconds.
func (m *Machine) Now() float64 { return m.now }

// Focus returns the current detector target.
func (m *Machine) Focus() Interactable { return m.focus }

// Pressed reports whether the button is held.
func (m *Machine) Pressed() bool { return m.pressed }

// Blocked reports whether focus moved off the saved target while pressed.
func (m *Machine) Blocked() bool { return m.blocked }

// SetFocus moves focus to target, ending focus on the previous target first.
func (m *Machine) SetFocus(target Interactable) {
	if Same(m.focus, target) {
		return
	}
	if m.focus != nil {
		m.focus.EndFocus(m.actor)
	}
	m.focus = target
	if target != nil {
		target.BeginFocus(m.actor)
	}
	if m.pressed && m.saved != nil && !Same(m.saved, target) {
		m.blocked = true
	}
}

// Press handles the button-down edge.
func (m *Machine) Press() {
	if m.pressed {
		return
	}
	m.pressed = true
	target := m.focus
	if target == nil || !target.CanInteract(m.actor) {
		return
	}
	if m.rec.Target != nil && !Same(m.rec.Target, target) {
		if !m.cancellable() {
			return
		}
		m.Cancel()
	}
	desc := target.Descriptor()
	if m.rec.State != StateIdle && (desc.Type != TypeMash || m.rec.Mode != TypeMash) {
		// an uncancellable hold is still running to completion
		return
	}
	m.saved = target

	switch desc.Type {
	case TypeTap, TypeToggle:
		m.begin(target, desc.Type)
	case TypeHold, TypeTapOrHold:
		m.begin(target, desc.Type)
		m.rec.Deadline = m.now + desc.Hold.TapHoldThreshold
		m.indicator.Show(target)
	case TypeMash:
		if m.rec.State == StateIdle {
			m.begin(target, TypeMash)
			m.rec.MashCount = 0
			m.indicator.Show(target)
			target.MashStart(m.actor)
			m.transition(eventProgress)
		}
		m.mashPress(desc)
	case TypeContinuous:
		m.begin(target, TypeContinuous)
		m.rec.Continuous = true
		m.transition(eventProgress)
		m.indicator.Show(target)
		target.HoldStart(m.actor)
	}
}

// Release handles the button-up edge.
func (m *Machine) Release() {
	if !m.pressed {
		return
	}
	m.pressed = false
	m.blocked = false
	target := m.rec.Target
	if target == nil {
		m.saved = nil
		return
	}
	desc := target.Descriptor()
	m.rec.Elapsed = m.now - m.rec.PressTime

	switch m.rec.Mode {
	case TypeTap, TypeToggle:
		m.commitTap(target)
	case TypeTapOrHold:
		if !m.rec.Graduated {
			m.indicator.Hide()
			m.commitTap(target)
			break
		}
		m.releaseHold(target, desc)
	case TypeHold:
		if !m.rec.Graduated {
			m.indicator.Hide()
			m.finish(eventCancel)
			break
		}
		m.releaseHold(target, desc)
	case TypeContinuous:
		target.HoldCancel(m.actor)
		m.indicator.Hide()
		m.finish(eventCancel)
	case TypeMash:
		return
	}
	if m.rec.State == StateIdle {
		m.saved = nil
	}
}

// Update advances the machine clock by dt seconds.
func (m *Machine) Update(dt float64) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	m.now += dt
	target := m.rec.Target
	if target == nil {
		return
	}
	desc := target.Descriptor()
	m.rec.Elapsed = m.now - m.rec.PressTime

	switch m.rec.Mode {
	case TypeHold, TypeTapOrHold:
		if !m.rec.Graduated {
			if !m.pressed || m.now+timeEpsilon < m.rec.Deadline {
				return
			}
			m.rec.Graduated = true
			target.HoldStart(m.actor)
			m.transition(eventProgress)
		}
		progress := desc.HoldProgress(m.rec.Elapsed)
		if progress < m.rec.Progress {
			progress = m.rec.Progress
		}
		m.rec.Progress = progress
		target.HoldUpdate(m.actor, progress)
		m.indicator.SetProgress(progress)
		if progress >= 1 {
			m.completeHold(target)
		}
	case TypeMash:
		m.decayMash(desc.Mash.DecayRate * dt)
		m.rec.Progress = desc.MashProgress(m.rec.MashCount)
		target.MashUpdate(m.actor, m.rec.Progress)
		m.indicator.SetProgress(m.rec.Progress)
		if m.rec.MashCount == 0 && m.now-m.rec.LastEventTime+timeEpsilon >= m.cfg.MashIdleTimeout {
			target.MashFail(m.actor)
			m.indicator.Hide()
			m.finish(eventFail)
			if !m.pressed {
				m.saved = nil
			}
		}
	}
}

// Cancel aborts the active interaction. It is a no-op when idle.
func (m *Machine) Cancel() {
	target := m.rec.Target
	if target == nil {
		return
	}
	switch m.rec.Mode {
	case TypeHold, TypeTapOrHold:
		if m.rec.Graduated {
			target.HoldCancel(m.actor)
		}
	case TypeContinuous:
		target.HoldCancel(m.actor)
	case TypeMash:
		target.MashFail(m.actor)
	}
	m.indicator.Hide()
	m.finish(eventCancel)
	m.saved = nil
}

// cancellable reports whether the active interaction may be cut short by a
// press on another target.
func (m *Machine) cancellable() bool {
	switch m.rec.Mode {
	case TypeHold, TypeTapOrHold:
		if m.rec.Graduated {
			return m.rec.Target.Descriptor().Hold.CanCancel
		}
	}
	return true
}

// decayMash removes whole counts from the accumulated decay. The remainder
// carries to the next tick and is dropped once the count reaches zero.
func (m *Machine) decayMash(amount float64) {
	m.rec.MashDecay += amount
	if whole := math.Floor(m.rec.MashDecay + timeEpsilon); whole >= 1 {
		m.rec.MashDecay = max(0, m.rec.MashDecay-whole)
		m.rec.MashCount = max(0, m.rec.MashCount-int(whole))
	}
	if m.rec.MashCount == 0 {
		m.rec.MashDecay = 0
	}
}

func (m *Machine) begin(target Interactable, mode Type) {
	m.rec = Record{
		State:     m.rec.State,
		Mode:      mode,
		Target:    target,
		PressTime: m.now,
	}
	m.transition(eventStart)
}

func (m *Machine) mashPress(desc Descriptor) {
	target := m.rec.Target
	m.rec.MashCount++
	m.rec.LastEventTime = m.now
	m.rec.Progress = desc.MashProgress(m.rec.MashCount)
	target.MashUpdate(m.actor, m.rec.Progress)
	m.indicator.SetProgress(m.rec.Progress)
	if m.rec.MashCount < desc.Mash.RequiredCount {
		return
	}
	m.indicator.Hide()
	if !m.allow(target, TypeMash) {
		target.MashFail(m.actor)
		m.finish(eventFail)
		return
	}
	target.MashComplete(m.actor)
	m.finish(eventComplete)
}

func (m *Machine) commitTap(target Interactable) {
	if !m.allow(target, m.rec.Mode) {
		m.finish(eventFail)
		return
	}
	target.OnInteract(m.actor)
	m.finish(eventComplete)
}

func (m *Machine) releaseHold(target Interactable, desc Descriptor) {
	if m.rec.Progress >= 1 {
		return
	}
	if !desc.Hold.CanCancel {
		return
	}
	target.HoldCancel(m.actor)
	m.indicator.Hide()
	m.finish(eventCancel)
}

func (m *Machine) completeHold(target Interactable) {
	m.indicator.Hide()
	if !m.allow(target, m.rec.Mode) {
		target.HoldCancel(m.actor)
		m.finish(eventFail)
	} else {
		target.HoldComplete(m.actor)
		m.finish(eventComplete)
	}
	if !m.pressed {
		m.saved = nil
	}
}

func (m *Machine) allow(target Interactable, mode Type) bool {
	if m.commit == nil {
		return true
	}
	return m.commit(target, mode)
}

// finish moves the record into a terminal state, reports it, then clears the
// record back to idle.
func (m *Machine) finish(event string) {
	m.transition(event)
	m.transition(eventReset)
	m.rec = Record{State: StateIdle}
}

func (m *Machine) transition(event string) {
	from, to, ok := fire(m.lifecycle, event)
	if !ok {
		return
	}
	m.rec.State = to
	if m.observer != nil {
		m.observer(Transition{From: from, To: to, Mode: m.rec.Mode, Target: m.rec.Target, Time: m.now})
	}
}
