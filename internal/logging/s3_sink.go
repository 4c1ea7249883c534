package logging

import (
	"context"
	"sync"
	"time"

	"englishqa/internal/utils"
)

// batchUploader is satisfied by S3Writer
type batchUploader interface {
	WriteBatch(ctx context.Context, records []*Exchange) (string, error)
}

// S3Sink buffers exchange records in memory and uploads them in batches.
// A batch ships when it reaches batchSize or when flushInterval elapses,
// whichever comes first.
type S3Sink struct {
	uploader      batchUploader
	batchSize     int
	flushInterval time.Duration
	logger        *utils.Logger

	logCh  chan *Exchange
	doneCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewS3Sink creates a sink that batches records into uploader
func NewS3Sink(uploader batchUploader, batchSize, bufferSize int, flushInterval time.Duration) *S3Sink {
	sink := &S3Sink{
		uploader:      uploader,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        utils.NewLogger("s3-sink"),
		logCh:         make(chan *Exchange, bufferSize),
		doneCh:        make(chan struct{}),
	}

	sink.wg.Add(1)
	go sink.run()

	return sink
}

// Enqueue queues a record for upload. Never blocks; a full buffer drops
// the record.
func (s *S3Sink) Enqueue(rec *Exchange) error {
	select {
	case s.logCh <- rec:
	default:
		// Buffer full; dropping record.
	}
	return nil
}

// Shutdown uploads any buffered records and stops the background loop
func (s *S3Sink) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)
	s.wg.Wait()
}

func (s *S3Sink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	var batch []*Exchange

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := s.uploader.WriteBatch(ctx, batch); err != nil {
			s.logger.Error("failed to upload exchange batch", "error", err, "count", len(batch))
		}
		cancel()
		batch = nil
	}

	for {
		select {
		case rec := <-s.logCh:
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.doneCh:
			for {
				select {
				case rec := <-s.logCh:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}
