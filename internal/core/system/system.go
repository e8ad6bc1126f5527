package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: run queued commands
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: monster AI
	PhasePostUpdate              // 3: map upkeep, stats
	PhasePersist                 // 4: house tile saves
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhasePersist:
		return "persist"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
