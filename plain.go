package video_compressor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// PlainView prints the rows as text every time they change. Used when there
// is no interactive screen.
type PlainView struct {
	adapter *ProgressListAdapter

	mu   sync.Mutex
	w    io.Writer
	last string
}

var _ View = (*PlainView)(nil)

func NewPlainView(w io.Writer) *PlainView {
	return &PlainView{w: w, adapter: NewProgressListAdapter(nil)}
}

var (
	nameColor    = color.New(color.Bold)
	activeColor  = color.New(color.FgGreen)
	okColor      = color.New(color.FgHiGreen)
	errorColor   = color.New(color.FgRed)
	waitingColor = color.New(color.Faint)
)

func (v *PlainView) ShowSession(visible bool) {}

func (v *PlainView) Render(items []VideoItemState) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.adapter.SetItems(items)
	var b strings.Builder
	for index, row := range v.adapter.Rows() {
		formatPlainRow(&b, index, row)
	}
	text := b.String()
	if text == v.last {
		return
	}
	v.last = text
	fmt.Fprint(v.w, text)
}

func formatPlainRow(b *strings.Builder, index int, row Row) {
	name := filepath.Base(row.SourceURI)
	fmt.Fprintf(b, "[%d] %s", index+1, nameColor.Sprint(name))
	switch {
	case row.StatusVisible:
		fmt.Fprintf(b, "  %s", errorColor.Sprint(row.StatusLabel))
	case row.SizeVisible:
		fmt.Fprintf(b, "  %s", okColor.Sprint(row.SizeLabel))
	case row.ProgressVisible:
		fmt.Fprintf(b, "  %s", activeColor.Sprint(row.ProgressLabel))
	default:
		fmt.Fprintf(b, "  %s", waitingColor.Sprint("waiting"))
	}
	b.WriteString("\n")
}
