package video_compressor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// View shows the rows of a session. Both methods are called from the
// session goroutine and must not block for long.
type View interface {
	Render(items []VideoItemState)
	ShowSession(visible bool)
}

// Picker resolves zero or more video references chosen by the user
type Picker interface {
	PickVideos(ctx context.Context) ([]string, error)
}

// Recorder captures exactly one new video
type Recorder interface {
	RecordVideo(ctx context.Context) (string, error)
}

type SessionOptions struct {
	Gallery    Picker
	Camera     Recorder
	Storage    StorageConfiguration
	Config     Configuration
	Streamable bool

	ProgressStep int
	MarkFailures bool

	Logger *zap.Logger
}

// Session collects selected videos, hands them to the compressor and keeps
// the rendered list in sync with the compressor callbacks. All state is owned
// by a single goroutine; everything else posts closures to its mailbox.
type Session struct {
	compressor Compressor
	view       View
	opts       SessionOptions
	logger     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	mailbox chan func()
	done    chan struct{}
	batches sync.WaitGroup

	// owned by the session goroutine
	list       itemList
	generation int
}

func NewSession(compressor Compressor, view View, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		compressor: compressor,
		view:       view,
		opts:       opts,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		mailbox:    make(chan func(), 64),
		done:       make(chan struct{}),
		list: itemList{
			progressStep: opts.ProgressStep,
			markFailures: opts.MarkFailures,
		},
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.mailbox:
			fn()
		case <-s.ctx.Done():
			return
		}
	}
}

// post runs fn on the session goroutine. It is dropped once the session is closed.
func (s *Session) post(fn func()) bool {
	select {
	case s.mailbox <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) render() {
	s.view.Render(s.list.snapshot())
}

// Close tears the session down: running batches are cancelled and any
// callback arriving afterwards is ignored.
func (s *Session) Close() {
	s.cancel()
	s.compressor.Cancel()
	<-s.done
}

// Flush waits until everything posted so far has been handled
func (s *Session) Flush() {
	flushed := make(chan struct{})
	if !s.post(func() { close(flushed) }) {
		return
	}
	select {
	case <-flushed:
	case <-s.ctx.Done():
	}
}

// Wait blocks until every submitted batch returned from the compressor and
// its callbacks were applied
func (s *Session) Wait() {
	s.batches.Wait()
	s.Flush()
}

// Items returns a copy of the current rows
func (s *Session) Items() []VideoItemState {
	result := make(chan []VideoItemState, 1)
	if !s.post(func() { result <- s.list.snapshot() }) {
		return nil
	}
	select {
	case items := <-result:
		return items
	case <-s.ctx.Done():
		return nil
	}
}

// Reset clears the references and the rows and hides the session. Batches
// still running are not cancelled, their callbacks are ignored from now on.
func (s *Session) Reset() {
	s.reset()
}

// reset returns the generation it started, or -1 once the session is closed
func (s *Session) reset() int {
	result := make(chan int, 1)
	posted := s.post(func() {
		s.generation++
		s.list.reset()
		s.view.ShowSession(false)
		s.render()
		result <- s.generation
	})
	if !posted {
		return -1
	}
	select {
	case generation := <-result:
		return generation
	case <-s.ctx.Done():
		return -1
	}
}

func (s *Session) SelectFromGallery(ctx context.Context) error {
	if s.opts.Gallery == nil {
		return errors.New("no gallery configured")
	}
	generation := s.reset()
	uris, err := s.opts.Gallery.PickVideos(ctx)
	if err != nil && !errors.Is(err, ErrSelectionEmpty) {
		s.logger.Warn("gallery selection", zap.Error(err))
	}
	if len(uris) == 0 {
		s.logger.Info("gallery selection returned no video")
		return nil
	}
	s.submit(uris, generation)
	return nil
}

func (s *Session) RecordFromCamera(ctx context.Context) error {
	if s.opts.Camera == nil {
		return errors.New("no camera configured")
	}
	generation := s.reset()
	uri, err := s.opts.Camera.RecordVideo(ctx)
	if errors.Is(err, ErrSelectionEmpty) {
		s.logger.Info("camera recording cancelled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("recording from camera: %w", err)
	}
	s.submit([]string{uri}, generation)
	return nil
}

// SubmitBatch hands uris to the compressor as one batch and returns without
// waiting for it. An empty batch is ignored.
func (s *Session) SubmitBatch(uris []string) {
	s.submit(uris, anyGeneration)
}

const anyGeneration = 0

// submit adds the batch only while generation is current, so a selection
// overtaken by a newer one is dropped. anyGeneration always adds.
func (s *Session) submit(uris []string, generation int) {
	if len(uris) == 0 || generation < 0 {
		return
	}
	uris = append([]string(nil), uris...)
	s.batches.Add(1)
	posted := s.post(func() {
		if generation != anyGeneration && generation != s.generation {
			s.logger.Info("dropping selection overtaken by a newer one", zap.Int("videos", len(uris)))
			s.batches.Done()
			return
		}
		base := s.list.add(uris)
		s.view.ShowSession(true)

		listener := &batchListener{
			session:    s,
			generation: s.generation,
			base:       base,
			logger: s.logger.With(
				zap.String("batch", uuid.NewString()),
				zap.Int("videos", len(uris)),
			),
		}
		request := CompressRequest{
			URIs:       uris,
			Streamable: s.opts.Streamable,
			Storage:    s.storageFor(),
			Config:     s.opts.Config,
		}
		listener.logger.Info("submitting batch", zap.String("save_at", request.Storage.SaveAt), zap.String("name", request.Storage.VideoName))
		go func() {
			defer s.batches.Done()
			s.compressor.Start(s.ctx, request, listener)
		}()
	})
	if !posted {
		s.batches.Done()
	}
}

func (s *Session) storageFor() StorageConfiguration {
	storage := s.opts.Storage
	if storage.VideoName == "" {
		storage.VideoName = "compressed_video"
	}
	storage.VideoName = fmt.Sprintf("%s_%d", storage.VideoName, time.Now().UnixMilli())
	return storage
}

// batchListener maps the compressor callbacks of one batch onto the
// session goroutine
type batchListener struct {
	session    *Session
	generation int
	base       int
	logger     *zap.Logger
}

var _ CompressionListener = (*batchListener)(nil)

func (l *batchListener) apply(index int, fn func(position int) bool) {
	s := l.session
	s.post(func() {
		if l.generation != s.generation {
			l.logger.Debug("dropping callback of a reset batch", zap.Int("index", index))
			return
		}
		if fn(l.base + index) {
			s.render()
		}
	})
}

func (l *batchListener) OnStart(index int) {
	l.apply(index, l.session.list.start)
}

func (l *batchListener) OnProgress(index int, percent float64) {
	l.apply(index, func(position int) bool {
		return l.session.list.progress(position, percent)
	})
}

func (l *batchListener) OnSuccess(index int, size int64, path string) {
	l.logger.Info("compression succeeded", zap.Int("index", index), zap.String("path", path), zap.String("size", BytesSize(size)))
	l.apply(index, func(position int) bool {
		return l.session.list.success(position, size, path)
	})
}

func (l *batchListener) OnFailure(index int, message string) {
	l.logger.Warn("compression failed", zap.Int("index", index), zap.String("message", message))
	l.apply(index, func(position int) bool {
		return l.session.list.failure(position, message)
	})
}

func (l *batchListener) OnCancelled(index int) {
	l.logger.Warn("compression has been cancelled", zap.Int("index", index))
	l.apply(index, l.session.list.cancelled)
}
