package session

import (
	"maps"

	"project-hunter/server/internal/interact"
)

// NoticeKind names an outbox entry.
type NoticeKind string

const (
	NoticeFocus    NoticeKind = "focus"
	NoticeState    NoticeKind = "state"
	NoticeProgress NoticeKind = "progress"
	NoticeRejected NoticeKind = "rejected"
	NoticePickup   NoticeKind = "pickup"
)

// Notice is a client-facing update queued by the session and drained by the
// transport after each tick.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	TargetID    uint64     `json:"targetId,omitempty"`
	GroundID    uint64     `json:"groundId,omitempty"`
	Text        string     `json:"text,omitempty"`
	Mode        string     `json:"mode,omitempty"`
	State       string     `json:"state,omitempty"`
	Progress    float64    `json:"progress,omitempty"`
	Visible     bool       `json:"visible,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Destination string     `json:"destination,omitempty"`
	ItemID      string     `json:"itemId,omitempty"`
}

// Counters tallies session outcomes.
type Counters struct {
	Pickups        uint64                    `json:"pickups"`
	PickupFailures uint64                    `json:"pickupFailures"`
	Rejected       uint64                    `json:"rejected"`
	Transitions    map[interact.State]uint64 `json:"transitions"`
}

// Diagnostics is a point-in-time view of a session.
type Diagnostics struct {
	ID                 string            `json:"id"`
	FocusTarget        uint64            `json:"focusTarget,omitempty"`
	FocusGround        uint64            `json:"focusGround,omitempty"`
	State              interact.State    `json:"state"`
	Mode               string            `json:"mode,omitempty"`
	Progress           float64           `json:"progress"`
	Pressed            bool              `json:"pressed"`
	LatencyBudget      float64           `json:"latencyBudget"`
	ValidationFailures map[string]uint64 `json:"validationFailures"`
	Counters           Counters          `json:"counters"`
	LastFailure        string            `json:"lastFailure,omitempty"`
}

// Diagnostics reports validator counters, focus and the active record.
func (s *Session) Diagnostics() Diagnostics {
	rec := s.machine.Record()
	d := Diagnostics{
		ID:                 s.id,
		State:              rec.State,
		Progress:           rec.Progress,
		Pressed:            s.machine.Pressed(),
		LatencyBudget:      s.validator.LatencyBudget(),
		ValidationFailures: make(map[string]uint64),
	}
	if rec.Target != nil {
		d.Mode = rec.Mode.String()
	}
	if s.focus.Target != nil {
		d.FocusTarget = uint64(s.focus.Target.ActorID())
	}
	if s.focus.HasGround {
		d.FocusGround = uint64(s.focus.GroundID)
	}
	for reason, n := range s.validator.Counters() {
		d.ValidationFailures[string(reason)] = n
	}
	s.mu.Lock()
	d.Counters = s.counters
	d.Counters.Transitions = maps.Clone(s.counters.Transitions)
	d.LastFailure = s.last
	s.mu.Unlock()
	return d
}

// Drain returns and clears the queued notices.
func (s *Session) Drain() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outbox
	s.outbox = nil
	return out
}

func (s *Session) push(n Notice) {
	s.mu.Lock()
	s.outbox = append(s.outbox, n)
	s.mu.Unlock()
}

// progressIndicator mirrors the machine's HUD calls into the outbox.
type progressIndicator struct {
	s    *Session
	next interact.Indicator
}

func (p *progressIndicator) Show(target interact.Interactable) {
	n := Notice{Kind: NoticeProgress, Visible: true}
	if target != nil {
		n.TargetID = uint64(target.ActorID())
		n.Text = target.DisplayText()
	}
	p.s.push(n)
	if p.next != nil {
		p.next.Show(target)
	}
}

func (p *progressIndicator) SetProgress(progress float64) {
	p.s.push(Notice{Kind: NoticeProgress, Visible: true, Progress: progress})
	if p.next != nil {
		p.next.SetProgress(progress)
	}
}

func (p *progressIndicator) Hide() {
	p.s.push(Notice{Kind: NoticeProgress})
	if p.next != nil {
		p.next.Hide()
	}
}
