// Package driver orchestrates the analysis pipeline over parsed tree dumps:
// CST -> HIR -> typed HIR -> MIR. Each pass is a pure function of its inputs;
// the driver owns file loading, parallelism, caching and timing.
package driver

import (
	"fmt"
	"io"
	"os"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/diagfmt"
	"rook/internal/hir"
	"rook/internal/mir"
	"rook/internal/mono"
	"rook/internal/sema"
	"rook/internal/source"
)

// TreeExt is the extension of parsed tree dumps produced by the external
// tree-sitter front-end.
const TreeExt = ".rkt"

// Options configures a diagnose run.
type Options struct {
	MaxDiagnostics int
	EmitMIR        bool
	Timings        bool
	Cache          *DiskCache
}

// Result captures every artefact of diagnosing one file.
type Result struct {
	Path   string
	FileID source.FileID
	Bag    *diag.Bag
	HIR    *hir.Module
	Sema   *sema.TyContext
	MIR    *mir.Module
	Timing *Timings

	// FromCache marks results replayed from the disk cache.
	FromCache bool
}

// DiagnoseFile runs the full pipeline over one tree dump.
func DiagnoseFile(fs *source.FileSet, interner *source.Interner, path string, opts Options) (*Result, error) {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 256
	}
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DiagnoseContent(fs, interner, path, string(content), opts)
}

// DiagnoseContent runs the pipeline over in-memory content (tests, stdin).
func DiagnoseContent(fs *source.FileSet, interner *source.Interner, path, content string, opts Options) (*Result, error) {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 256
	}

	if opts.Cache != nil {
		if cached, ok := opts.Cache.Get(path, []byte(content)); ok {
			bag := diag.NewBag(opts.MaxDiagnostics)
			replayDiagnostics(cached, bag, fs, path, content)
			return &Result{Path: path, Bag: bag, FromCache: true}, nil
		}
	}

	timing := NewTimings()
	bag := diag.NewBag(opts.MaxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	stop := timing.Start("parse")
	tree, err := cst.ParseSexp(fs, path, content)
	stop()
	if err != nil {
		return nil, fmt.Errorf("driver: read tree %s: %w", path, err)
	}

	res := &Result{Path: path, FileID: tree.File, Bag: bag, Timing: timing}

	stop = timing.Start("lower")
	res.HIR = hir.Lower(tree, interner, reporter)
	stop()

	stop = timing.Start("check")
	res.Sema = sema.Check(res.HIR, reporter)
	stop()

	if opts.EmitMIR {
		stop = timing.Start("mir")
		res.MIR = mono.Run(res.HIR, res.Sema)
		stop()
	}

	bag.Sort()

	if opts.Cache != nil {
		opts.Cache.Put(path, []byte(content), snapshotDiagnostics(bag))
	}
	return res, nil
}

// snapshotDiagnostics converts a bag into the cacheable wire form.
func snapshotDiagnostics(bag *diag.Bag) []CachedDiagnostic {
	out := make([]CachedDiagnostic, 0, bag.Len())
	for _, d := range bag.Items() {
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{
				Msg:   n.Msg,
				Start: n.Span.Start,
				End:   n.Span.End,
			})
		}
		out = append(out, cd)
	}
	return out
}

// replayDiagnostics rebuilds a bag from the cached form, re-anchoring spans
// in a freshly registered file.
func replayDiagnostics(cached []CachedDiagnostic, bag *diag.Bag, fs *source.FileSet, path, content string) {
	file := fs.AddVirtual(path, []byte(content))
	for _, cd := range cached {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code),
			source.Span{File: file, Start: cd.Start, End: cd.End}, cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(source.Span{File: file, Start: n.Start, End: n.End}, n.Msg)
		}
		bag.Add(d)
	}
}

// WriteJSON renders a result's diagnostics in the stable JSON shape.
func (r *Result) WriteJSON(fs *source.FileSet, w io.Writer) error {
	return diagfmt.WriteJSON(w, r.Bag, fs)
}
