package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/orris-inc/gatekeeper/internal/shared/goroutine"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/metrics"
)

const (
	// Updates are bucketed by sender (userID % workerCount) so one member's
	// updates run in order while different members run concurrently.
	defaultWorkerCount = 4
	defaultPollTimeout = 30
	errorBackoff       = 5 * time.Second
)

// OffsetStore persists the polling offset across restarts.
type OffsetStore interface {
	GetOffset(ctx context.Context) (int64, error)
	SaveOffset(ctx context.Context, offset int64) error
}

// UpdateHandler handles one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *Update) error
}

// UpdateSource is the part of the Bot API the polling loop needs.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
	DeleteWebhook(ctx context.Context) error
}

// PollingService fetches updates with getUpdates and fans them out to workers.
type PollingService struct {
	source             UpdateSource
	handler            UpdateHandler
	logger             logger.Interface
	offsetStore        OffsetStore // nil keeps the offset in memory only
	pollTimeout        int
	stopChan           chan struct{}
	cancelFunc         context.CancelFunc
	wg                 sync.WaitGroup
	lastUpdateID       int64
	processedWatermark int64 // highest update_id handled in this session
	workerCount        int
	isRunning          bool
	runningMu          sync.Mutex
}

func NewPollingService(
	source UpdateSource,
	handler UpdateHandler,
	logger logger.Interface,
	offsetStore OffsetStore,
	workers int,
) *PollingService {
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	return &PollingService{
		source:      source,
		handler:     handler,
		logger:      logger,
		offsetStore: offsetStore,
		pollTimeout: defaultPollTimeout,
		stopChan:    make(chan struct{}),
		workerCount: workers,
	}
}

// Start begins polling in the background.
func (s *PollingService) Start(ctx context.Context) error {
	s.runningMu.Lock()
	if s.isRunning {
		s.runningMu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.runningMu.Unlock()

	if s.offsetStore != nil {
		saved, err := s.offsetStore.GetOffset(ctx)
		if err != nil {
			s.logger.Warnw("failed to load polling offset, starting from 0", "error", err)
		} else if saved > 0 {
			s.lastUpdateID = saved
			s.processedWatermark = saved
			s.logger.Infow("loaded polling offset from store", "offset", saved)
		}
	}

	// getUpdates is refused while a webhook is set
	if err := s.source.DeleteWebhook(ctx); err != nil {
		s.logger.Warnw("failed to delete webhook before polling", "error", err)
	}

	s.logger.Infow("starting telegram polling service",
		"timeout", s.pollTimeout,
		"workers", s.workerCount,
	)

	s.wg.Add(1)
	goroutine.SafeGo(s.logger, "telegram-poll-loop", func() {
		s.pollLoop(pollCtx)
	})

	return nil
}

// Stop cancels the in-flight request and waits for running handlers.
func (s *PollingService) Stop() {
	s.runningMu.Lock()
	if !s.isRunning {
		s.runningMu.Unlock()
		return
	}
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.runningMu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Infow("telegram polling service stopped")
}

func (s *PollingService) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("polling stopped due to context cancellation")
			return
		case <-s.stopChan:
			s.logger.Infow("polling stopped by stop signal")
			return
		default:
			s.poll(ctx)
		}
	}
}

func (s *PollingService) poll(ctx context.Context) {
	offset := int64(0)
	if s.lastUpdateID > 0 {
		offset = s.lastUpdateID + 1
	}
	updates, err := s.source.GetUpdates(ctx, offset, s.pollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Errorw("failed to get updates", "error", err)
		select {
		case <-ctx.Done():
		case <-s.stopChan:
		case <-time.After(errorBackoff):
		}
		return
	}

	s.process(ctx, updates)
}

// process handles one batch and advances the offset once every worker is done.
func (s *PollingService) process(ctx context.Context, updates []Update) {
	if len(updates) == 0 {
		return
	}

	filtered := make([]Update, 0, len(updates))
	var maxUpdateID int64
	for _, u := range updates {
		if u.UpdateID > maxUpdateID {
			maxUpdateID = u.UpdateID
		}
		if u.UpdateID > s.processedWatermark {
			filtered = append(filtered, u)
		}
	}

	buckets := make([][]Update, s.workerCount)
	for _, u := range filtered {
		idx := s.getUserAffinity(&u)
		buckets[idx] = append(buckets[idx], u)
	}

	var batchWg sync.WaitGroup
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		batchWg.Add(1)
		workerIdx := i
		workerBucket := bucket
		goroutine.SafeGo(s.logger, "telegram-worker-batch", func() {
			s.processWorkerBatch(ctx, &batchWg, workerIdx, workerBucket)
		})
	}
	batchWg.Wait()

	if maxUpdateID > s.lastUpdateID {
		s.lastUpdateID = maxUpdateID
	}
	if maxUpdateID > s.processedWatermark {
		s.processedWatermark = maxUpdateID
	}

	// the poll context may already be cancelled during shutdown
	if s.offsetStore != nil && s.lastUpdateID > 0 {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer saveCancel()
		if err := s.offsetStore.SaveOffset(saveCtx, s.lastUpdateID); err != nil {
			s.logger.Warnw("failed to save polling offset", "error", err)
		}
	}
}

// processWorkerBatch runs one worker's updates in order. A panic in one
// update is logged and does not stop the rest.
func (s *PollingService) processWorkerBatch(ctx context.Context, wg *sync.WaitGroup, workerIdx int, updates []Update) {
	defer wg.Done()

	for i := range updates {
		if ctx.Err() != nil {
			return
		}

		func(u *Update) {
			start := time.Now()
			defer metrics.ObserveSince(u.Kind(), start)
			defer func() {
				if r := recover(); r != nil {
					s.logger.Errorw("panic recovered in update handler",
						"worker", workerIdx,
						"update_id", u.UpdateID,
						"panic", fmt.Sprintf("%v", r),
					)
				}
			}()

			if err := s.handler.HandleUpdate(ctx, u); err != nil {
				s.logger.Errorw("failed to handle update",
					"worker", workerIdx,
					"update_id", u.UpdateID,
					"kind", u.Kind(),
					"error", err,
				)
			}
		}(&updates[i])
	}
}

// getUserAffinity maps an update to a worker index by sender.
func (s *PollingService) getUserAffinity(u *Update) int {
	userID := u.UpdateID
	if from := u.Sender(); from != nil {
		userID = from.ID
	}
	idx := int(userID % int64(s.workerCount))
	if idx < 0 {
		idx += s.workerCount
	}
	return idx
}
