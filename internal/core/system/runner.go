package system

import "time"

const numPhases = int(PhasePersist) + 1

// Runner drives the registered systems once per tick, phase by phase.
// Within a phase systems keep their registration order.
type Runner struct {
	phases [numPhases][]System
	ticks  uint64
}

func NewRunner() *Runner {
	return &Runner{}
}

// Register adds s to its phase. It panics on a phase outside
// PhaseInput..PhasePersist.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < PhaseInput || int(p) >= numPhases {
		panic("system: register with invalid phase " + p.String())
	}
	r.phases[p] = append(r.phases[p], s)
}

// Tick runs every phase and counts a completed tick.
func (r *Runner) Tick(dt time.Duration) {
	for p := range r.phases {
		r.run(Phase(p), dt)
	}
	r.ticks++
}

// TickPhase runs a single phase without counting a tick. The game loop
// drains queued commands with it between full ticks.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if phase >= PhaseInput && int(phase) < numPhases {
		r.run(phase, dt)
	}
}

func (r *Runner) run(p Phase, dt time.Duration) {
	for _, s := range r.phases[p] {
		s.Update(dt)
	}
}

// Ticks returns the number of completed full ticks.
func (r *Runner) Ticks() uint64 { return r.ticks }
