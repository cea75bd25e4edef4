package diag

import "rook/internal/source"

// Reporter — минимальный контракт получения диагностик от фаз.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes every reported diagnostic into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// TaintReporter suppresses follow-up diagnostics anchored at a span that
// already produced one. The first error on a node taints it; cascades on the
// same node are dropped.
type TaintReporter struct {
	Next    Reporter
	tainted map[source.Span]bool
}

func NewTaintReporter(next Reporter) *TaintReporter {
	return &TaintReporter{Next: next, tainted: make(map[source.Span]bool)}
}

func (r *TaintReporter) Report(d Diagnostic) {
	if d.Severity >= SevError {
		if r.tainted[d.Primary] {
			return
		}
		r.tainted[d.Primary] = true
	}
	if r.Next != nil {
		r.Next.Report(d)
	}
}
