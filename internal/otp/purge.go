package otp

import (
	"context"
	"time"

	"github.com/zfogg/plaza/internal/logger"
	"go.uber.org/zap"
)

// Purger is implemented by stores that need expired rows removed
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// PurgeService periodically deletes expired codes from a DB-backed store
type PurgeService struct {
	store    Purger
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPurgeService(store Purger, interval time.Duration) *PurgeService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PurgeService{
		store:    store,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (s *PurgeService) Start() {
	logger.Log.Info("Starting OTP purge service", zap.Duration("interval", s.interval))
	go s.run()
}

// Stop cancels the loop and waits for it to exit
func (s *PurgeService) Stop() {
	s.cancel()
	<-s.done
	logger.Log.Info("OTP purge service stopped")
}

func (s *PurgeService) run() {
	defer close(s.done)

	s.purgeOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purgeOnce()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *PurgeService) purgeOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	n, err := s.store.Purge(ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			logger.Log.Error("Failed to purge expired OTP codes", zap.Error(err))
		}
		return
	}
	if n > 0 {
		logger.Log.Info("Purged expired OTP codes", zap.Int64("count", n))
	}
}
