package video_compressor

import (
	"fmt"
	"image"
	"strings"
)

// Row is what one list entry displays
type Row struct {
	SourceURI string
	Thumbnail image.Image // nil while loading or when no preview could be made

	ProgressVisible bool
	ProgressLabel   string
	Progress        int

	SizeVisible bool
	SizeLabel   string

	StatusVisible bool
	StatusLabel   string
	Stage         ProcessingStage
}

// BindRow applies the visibility rules of a row to item
func BindRow(item VideoItemState) Row {
	row := Row{
		SourceURI: item.SourceURI,
		Stage:     item.Stage,
	}

	if item.ProgressPercent > 0 && item.ProgressPercent < 100 {
		row.ProgressVisible = true
		row.Progress = int(item.ProgressPercent)
		row.ProgressLabel = fmt.Sprintf("Compressing - %d%%", row.Progress)
	}

	if strings.TrimSpace(item.DisplaySize) != "" {
		row.SizeVisible = true
		row.SizeLabel = "Video size after compressed: " + item.DisplaySize
	}

	switch item.Stage {
	case ProcessingError:
		row.StatusVisible = true
		row.StatusLabel = "Compression failed"
		if item.Message != "" {
			row.StatusLabel += ": " + item.Message
		}
	case ProcessingCancelled:
		row.StatusVisible = true
		row.StatusLabel = "Compression cancelled"
	}
	return row
}

// ThumbnailSource loads previews in the background
type ThumbnailSource interface {
	Thumbnail(uri string) (image.Image, bool)
}

// ProgressListAdapter turns the session items into rows. The whole list is
// replaced on every change.
type ProgressListAdapter struct {
	items  []VideoItemState
	thumbs ThumbnailSource
}

func NewProgressListAdapter(thumbs ThumbnailSource) *ProgressListAdapter {
	return &ProgressListAdapter{thumbs: thumbs}
}

func (a *ProgressListAdapter) SetItems(items []VideoItemState) {
	a.items = items
}

func (a *ProgressListAdapter) ItemCount() int {
	return len(a.items)
}

func (a *ProgressListAdapter) Bind(position int) Row {
	row := BindRow(a.items[position])
	if a.thumbs != nil {
		row.Thumbnail, _ = a.thumbs.Thumbnail(row.SourceURI)
	}
	return row
}

func (a *ProgressListAdapter) Rows() []Row {
	rows := make([]Row, a.ItemCount())
	for index := range rows {
		rows[index] = a.Bind(index)
	}
	return rows
}
