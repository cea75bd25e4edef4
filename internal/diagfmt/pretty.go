package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"rook/internal/diag"
	"rook/internal/source"
)

// PrettyOpts controls the human-readable formatter.
type PrettyOpts struct {
	Color    bool
	PathMode string // "absolute", "relative", "basename", "auto"
	Context  bool   // печатать строку исходника с подчёркиванием
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	noteColor = color.New(color.FgCyan)
	posColor  = color.New(color.Bold)
)

func sevPrinter(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	default:
		return noteColor
	}
}

// Pretty formats diagnostics for a terminal. The bag is expected to be
// sorted already. Each diagnostic prints as
//
//	<path>:<line>:<col>: <severity>[<code>]: <message>
//
// followed by the source line with a ^~~~ underline, then notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	prevNoColor := color.NoColor
	color.NoColor = !opts.Color
	defer func() { color.NoColor = prevNoColor }()

	if opts.PathMode == "" {
		opts.PathMode = "auto"
	}

	for _, d := range bag.Items() {
		writeHeader(w, d.Severity, d.Code, d.Message, d.Primary, fs, opts)
		if opts.Context {
			writeContext(w, d.Primary, fs)
		}
		for _, n := range d.Notes {
			writeHeader(w, diag.SevNote, diag.UnknownCode, n.Msg, n.Span, fs, opts)
			if opts.Context {
				writeContext(w, n.Span, fs)
			}
		}
	}
}

func writeHeader(w io.Writer, sev diag.Severity, code diag.Code, msg string, sp source.Span, fs *source.FileSet, opts PrettyOpts) {
	f := fs.Get(sp.File)
	start, _ := fs.Resolve(sp)
	pos := fmt.Sprintf("%s:%d:%d", f.FormatPath(opts.PathMode, fs.BaseDir()), start.Line, start.Col)

	label := sev.String()
	if code != diag.UnknownCode {
		label = fmt.Sprintf("%s[%s]", label, code)
	}
	fmt.Fprintf(w, "%s: %s: %s\n", posColor.Sprint(pos), sevPrinter(sev).Sprint(label), msg)
}

func writeContext(w io.Writer, sp source.Span, fs *source.FileSet) {
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}

	fmt.Fprintf(w, "  %4d | %s\n", start.Line, line)

	// Выравниваем подчёркивание по реальной ширине рун до начала спана.
	prefix := ""
	if int(start.Col-1) <= len(line) {
		prefix = line[:start.Col-1]
	}
	pad := runewidth.StringWidth(prefix)

	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		seg := line
		if int(end.Col-1) <= len(line) {
			seg = line[start.Col-1 : end.Col-1]
		}
		if w := runewidth.StringWidth(seg); w > 0 {
			width = w
		}
	}

	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "       | %s%s\n", strings.Repeat(" ", pad), errColor.Sprint(marker))
}
