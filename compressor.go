package video_compressor

import (
	"context"
	"strconv"
)

// CompressionListener receives the lifecycle of every video in a batch.
// Index is the position of the video in CompressRequest.URIs. Calls may
// come from any goroutine.
type CompressionListener interface {
	OnStart(index int)
	OnProgress(index int, percent float64)
	OnSuccess(index int, size int64, path string)
	OnFailure(index int, message string)
	OnCancelled(index int)
}

type StorageConfiguration struct {
	SaveAt    string // directory the compressed videos are written to
	VideoName string // output name without extension
}

type Configuration struct {
	Quality         VideoQuality
	MinBitrateCheck bool
}

type CompressRequest struct {
	URIs       []string
	Streamable bool
	Storage    StorageConfiguration
	Config     Configuration
}

// Compressor compresses a batch of videos. Start blocks until every video of
// the batch reached a terminal callback or the batch was aborted; results are
// only reported through the listener. Cancel aborts all in-flight batches.
type Compressor interface {
	Start(ctx context.Context, request CompressRequest, listener CompressionListener)
	Cancel()
}

// OutputName is the file name used for the video at index in a batch of count
func (s StorageConfiguration) OutputName(index, count int) string {
	if count <= 1 {
		return s.VideoName + ".mp4"
	}
	return s.VideoName + "_" + strconv.Itoa(index) + ".mp4"
}
