package driver

import (
	"fmt"
	"io"
	"time"
)

// Phase is one timed pipeline stage.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Timings collects per-phase durations in execution order.
type Timings struct {
	Phases []Phase
}

func NewTimings() *Timings {
	return &Timings{}
}

// Start begins timing a phase; the returned func stops it.
func (t *Timings) Start(name string) func() {
	if t == nil {
		return func() {}
	}
	begin := time.Now()
	return func() {
		t.Phases = append(t.Phases, Phase{Name: name, Duration: time.Since(begin)})
	}
}

// Total sums all phases.
func (t *Timings) Total() time.Duration {
	var sum time.Duration
	for _, p := range t.Phases {
		sum += p.Duration
	}
	return sum
}

// Write renders the report.
func (t *Timings) Write(w io.Writer) {
	for _, p := range t.Phases {
		fmt.Fprintf(w, "  %-8s %s\n", p.Name, p.Duration.Round(time.Microsecond))
	}
	fmt.Fprintf(w, "  %-8s %s\n", "total", t.Total().Round(time.Microsecond))
}
