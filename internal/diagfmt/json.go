package diagfmt

import (
	"encoding/json"
	"io"

	"rook/internal/diag"
	"rook/internal/source"
)

// SpanJSON is one span of a diagnostic in the stable JSON shape consumed by
// tooling. The primary span carries no label; notes carry theirs.
type SpanJSON struct {
	File  string `json:"file"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Label string `json:"label,omitempty"`
}

// DiagnosticJSON mirrors the external diagnostic record: severity, code,
// message and all spans (primary first).
type DiagnosticJSON struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Message  string     `json:"message"`
	Spans    []SpanJSON `json:"spans"`
}

// Output is the root of the JSON report.
type Output struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeSpan(sp source.Span, label string, fs *source.FileSet) SpanJSON {
	path := ""
	if fs != nil && int(sp.File) < fs.Len() {
		path = fs.Get(sp.File).FormatPath("relative", fs.BaseDir())
	}
	return SpanJSON{
		File:  path,
		Start: sp.Start,
		End:   sp.End,
		Label: label,
	}
}

// ToJSON converts a sorted bag into the stable output structure.
func ToJSON(bag *diag.Bag, fs *source.FileSet) Output {
	items := bag.Items()
	out := Output{
		Diagnostics: make([]DiagnosticJSON, 0, len(items)),
		Count:       len(items),
	}
	for _, d := range items {
		spans := make([]SpanJSON, 0, 1+len(d.Notes))
		spans = append(spans, makeSpan(d.Primary, "", fs))
		for _, n := range d.Notes {
			spans = append(spans, makeSpan(n.Span, n.Msg, fs))
		}
		out.Diagnostics = append(out.Diagnostics, DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.String(),
			Message:  d.Message,
			Spans:    spans,
		})
	}
	return out
}

// WriteJSON serializes the bag to w with stable field order.
func WriteJSON(w io.Writer, bag *diag.Bag, fs *source.FileSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToJSON(bag, fs))
}
