package video_compressor

import (
	"strings"
)

const DefaultProgressStep = 5

// itemList is the state shared between the callbacks and the rendering.
// It must only be touched from the session goroutine.
type itemList struct {
	uris    []string
	started []bool // per uri, whether it has a row
	items   []VideoItemState

	progressStep int
	markFailures bool
}

func (l *itemList) reset() {
	l.uris = nil
	l.started = nil
	l.items = nil
}

// add appends the references of a new batch and returns the list position
// of its first video
func (l *itemList) add(uris []string) int {
	base := len(l.uris)
	l.uris = append(l.uris, uris...)
	l.started = append(l.started, make([]bool, len(uris))...)
	return base
}

func (l *itemList) uri(index int) (string, bool) {
	if index < 0 || index >= len(l.uris) {
		return "", false
	}
	return l.uris[index], true
}

// row is the row of the reference at index. Rows keep submission order
// and only exist for started references.
func (l *itemList) row(index int) int {
	row := 0
	for _, started := range l.started[:index] {
		if started {
			row++
		}
	}
	return row
}

func (l *itemList) replace(index int, item VideoItemState) bool {
	if index < 0 || index >= len(l.uris) || !l.started[index] {
		return false
	}
	l.items[l.row(index)] = item
	return true
}

func (l *itemList) start(index int) bool {
	uri, ok := l.uri(index)
	if !ok {
		return false
	}
	item := VideoItemState{SourceURI: uri, Stage: ProcessingInProgress}
	row := l.row(index)
	if l.started[index] {
		l.items[row] = item
		return true
	}
	l.started[index] = true
	l.items = append(l.items, VideoItemState{})
	copy(l.items[row+1:], l.items[row:])
	l.items[row] = item
	return true
}

// throttled reports whether a progress event is dropped
func (l *itemList) throttled(percent float64) bool {
	step := l.progressStep
	if step <= 0 {
		step = DefaultProgressStep
	}
	return percent > 100 || int(percent)%step != 0
}

func (l *itemList) progress(index int, percent float64) bool {
	if l.throttled(percent) {
		return false
	}
	uri, ok := l.uri(index)
	if !ok {
		return false
	}
	return l.replace(index, VideoItemState{
		SourceURI:       uri,
		ProgressPercent: percent,
		Stage:           ProcessingInProgress,
	})
}

func (l *itemList) success(index int, size int64, path string) bool {
	uri, ok := l.uri(index)
	if !ok {
		return false
	}
	return l.replace(index, VideoItemState{
		SourceURI:       uri,
		OutputPath:      path,
		DisplaySize:     BytesSize(size),
		ProgressPercent: 100,
		Stage:           ProcessingSuccess,
	})
}

// failure and cancelled leave the row as it is unless failures are marked
func (l *itemList) failure(index int, message string) bool {
	if !l.markFailures {
		return false
	}
	uri, ok := l.uri(index)
	if !ok {
		return false
	}
	return l.replace(index, VideoItemState{
		SourceURI: uri,
		Stage:     ProcessingError,
		Message:   strings.TrimSpace(message),
	})
}

func (l *itemList) cancelled(index int) bool {
	if !l.markFailures {
		return false
	}
	uri, ok := l.uri(index)
	if !ok {
		return false
	}
	return l.replace(index, VideoItemState{SourceURI: uri, Stage: ProcessingCancelled})
}

func (l *itemList) snapshot() []VideoItemState {
	out := make([]VideoItemState, len(l.items))
	copy(out, l.items)
	return out
}
