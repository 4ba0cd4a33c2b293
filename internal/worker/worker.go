// Package worker consumes attempt completion jobs: it rebuilds the cached
// leaderboard and pushes the new ranking to live subscribers.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/leaderboard"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/realtime"
	"github.com/aura-quiz/backend/pkg/queue"
)

// Publisher broadcasts quiz events to every server instance.
type Publisher interface {
	PublishQuizEvent(quizID int64, event string, payload []byte) error
}

// LeaderboardProcessor processes attempt_completed jobs.
type LeaderboardProcessor struct {
	board   *leaderboard.Service
	pub     Publisher
	queue   *queue.Queue
	backoff time.Duration
	logger  *zap.Logger
}

// NewLeaderboardProcessor creates a leaderboard refresh processor. pub may be nil.
func NewLeaderboardProcessor(board *leaderboard.Service, pub Publisher, q *queue.Queue, logger *zap.Logger) *LeaderboardProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardProcessor{board: board, pub: pub, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one job.
func (p *LeaderboardProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodeAttemptCompleted(job)
	if err != nil {
		return err
	}

	entries, err := p.board.Refresh(ctx, payload.QuizID)
	if err != nil {
		return fmt.Errorf("refresh leaderboard: %w", err)
	}
	if p.pub != nil {
		raw, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshal leaderboard: %w", err)
		}
		if err := p.pub.PublishQuizEvent(payload.QuizID, realtime.EventLeaderboard, raw); err != nil {
			return fmt.Errorf("publish leaderboard: %w", err)
		}
	}

	p.logger.Info("leaderboard refreshed",
		zap.String("job_id", job.ID),
		zap.Int64("quiz_id", payload.QuizID),
		zap.Int64("attempt_id", payload.AttemptID),
		zap.Int("entries", len(entries)),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *LeaderboardProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("leaderboard worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *LeaderboardProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// CompletionPublisher enqueues a job for every completed attempt.
type CompletionPublisher struct {
	queue  *queue.Queue
	logger *zap.Logger
}

// NewCompletionPublisher creates a completion listener backed by the job queue.
func NewCompletionPublisher(q *queue.Queue, logger *zap.Logger) *CompletionPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionPublisher{queue: q, logger: logger}
}

// AttemptCompleted implements attempts.CompletionListener.
func (c *CompletionPublisher) AttemptCompleted(ctx context.Context, a *models.QuizAttempt) {
	err := c.queue.EnqueueAttemptCompleted(ctx, queue.AttemptCompletedPayload{
		AttemptID: a.ID,
		QuizID:    a.QuizID,
		UserID:    a.UserID,
	})
	if err != nil {
		c.logger.Error("enqueue attempt completed failed", zap.Int64("attempt_id", a.ID), zap.Error(err))
	}
}
