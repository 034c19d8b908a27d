package video_compressor

type ProcessingStage int

const (
	Waiting ProcessingStage = iota
	ProcessingInProgress
	ProcessingError
	ProcessingSuccess
	ProcessingCancelled
)

func (s ProcessingStage) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case ProcessingInProgress:
		return "in-progress"
	case ProcessingError:
		return "error"
	case ProcessingSuccess:
		return "success"
	case ProcessingCancelled:
		return "cancelled"
	}
	return "!Unhandled-Case!"
}

// VideoItemState is the view state of one submitted video.
// Values are replaced, never mutated in place, so plain == comparison works.
type VideoItemState struct {
	SourceURI       string
	OutputPath      string // empty until the compression succeeded
	DisplaySize     string // human readable output size, empty until success
	ProgressPercent float64

	// Stage is set by every row change; Message only by marked failures
	Stage   ProcessingStage
	Message string
}

type ProcessingRequest struct {
	InputPath  string
	OutputPath string
}

type VideoQuality int

const (
	VeryLow VideoQuality = iota
	Low
	Medium
	High
	VeryHigh
)

// BitrateFactor is the fraction of the source bitrate targeted by each tier
func (q VideoQuality) BitrateFactor() float64 {
	switch q {
	case VeryLow:
		return 0.1
	case Low:
		return 0.2
	case High:
		return 0.4
	case VeryHigh:
		return 0.6
	}
	return 0.3
}

// CRF is used when the source bitrate could not be probed
func (q VideoQuality) CRF() int {
	switch q {
	case VeryLow:
		return 34
	case Low:
		return 30
	case High:
		return 24
	case VeryHigh:
		return 21
	}
	return 27
}

func (q VideoQuality) String() string {
	switch q {
	case VeryLow:
		return "very_low"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case VeryHigh:
		return "very_high"
	}
	return "!Unhandled-Case!"
}

type SaveLocation string

const (
	SaveToMovies    SaveLocation = "movies"
	SaveToPictures  SaveLocation = "pictures"
	SaveToDownloads SaveLocation = "downloads"
)
