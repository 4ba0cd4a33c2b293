// Package leaderboard ranks completed attempts and caches the ranking in Redis.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aura-quiz/backend/internal/apperr"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
)

// Service serves quiz leaderboards. The ranking (up to limit entries) is
// cached as JSON under quiz:{id}:leaderboard; a nil Redis client disables the cache.
// Completions bump quiz:{id}:leaderboard:gen, and a rebuild is only stored if
// the generation it started from is still current.
type Service struct {
	store  store.Store
	rdb    *redis.Client
	ttl    time.Duration
	limit  int
	sf     singleflight.Group
	mu     sync.Mutex
	rnd    *rand.Rand
	logger *zap.Logger
}

// NewService creates a leaderboard service. limit caps the entries kept per
// quiz; limit <= 0 keeps every completed attempt.
func NewService(st store.Store, rdb *redis.Client, ttl time.Duration, limit int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  st,
		rdb:    rdb,
		ttl:    ttl,
		limit:  limit,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Key returns the cache key of a quiz leaderboard.
func Key(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":leaderboard"
}

// GenerationKey returns the key counting completions that invalidated the cache.
func GenerationKey(quizID int64) string {
	return Key(quizID) + ":gen"
}

// setIfGeneration stores ARGV[2] under KEYS[1] only while KEYS[2] still holds
// ARGV[1] (empty for a missing key). ARGV[3] is the TTL in ms, 0 for none.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or ''
if gen ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// Get returns the top entries of a quiz. limit <= 0 or above the configured
// cap returns the whole cached ranking.
func (s *Service) Get(ctx context.Context, quizID int64, limit int) ([]models.LeaderboardEntry, error) {
	if err := s.CheckQuiz(ctx, quizID); err != nil {
		return nil, err
	}

	entries, err := s.ranking(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// CheckQuiz returns NotFound unless the quiz exists.
func (s *Service) CheckQuiz(ctx context.Context, quizID int64) error {
	if _, err := s.store.Quizzes().GetByID(ctx, quizID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("quiz %d not found", quizID)
		}
		return apperr.Internal(err, "failed to load quiz")
	}
	return nil
}

// Refresh rebuilds the ranking from the store and rewrites the cache.
// The cache is left alone if a completion lands while the ranking loads.
func (s *Service) Refresh(ctx context.Context, quizID int64) ([]models.LeaderboardEntry, error) {
	return s.rebuild(ctx, quizID)
}

// AttemptCompleted bumps the quiz generation and drops the cached ranking.
func (s *Service) AttemptCompleted(ctx context.Context, attempt *models.QuizAttempt) {
	if s.rdb == nil {
		return
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(attempt.QuizID))
		pipe.Del(ctx, Key(attempt.QuizID))
		return nil
	})
	if err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", zap.Int64("quiz_id", attempt.QuizID), zap.Error(err))
	}
}

func (s *Service) ranking(ctx context.Context, quizID int64) ([]models.LeaderboardEntry, error) {
	if s.rdb == nil {
		return s.load(ctx, quizID)
	}
	if entries, ok := s.read(ctx, quizID); ok {
		return entries, nil
	}

	result, err, _ := s.sf.Do(Key(quizID), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if entries, ok := s.read(ctx, quizID); ok {
			return entries, nil
		}
		return s.rebuild(ctx, quizID)
	})
	if err != nil {
		return nil, err
	}
	// Callers may truncate; never hand out the shared slice.
	shared := result.([]models.LeaderboardEntry)
	return append([]models.LeaderboardEntry(nil), shared...), nil
}

// rebuild loads the ranking and caches it unless the generation moved meanwhile.
func (s *Service) rebuild(ctx context.Context, quizID int64) ([]models.LeaderboardEntry, error) {
	gen, genOK := s.generation(ctx, quizID)
	entries, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if genOK {
		s.write(ctx, quizID, gen, entries)
	}
	return entries, nil
}

func (s *Service) generation(ctx context.Context, quizID int64) (string, bool) {
	if s.rdb == nil {
		return "", false
	}
	gen, err := s.rdb.Get(ctx, GenerationKey(quizID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", true
	}
	if err != nil {
		s.logger.Warn("leaderboard generation read failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		return "", false
	}
	return gen, true
}

func (s *Service) load(ctx context.Context, quizID int64) ([]models.LeaderboardEntry, error) {
	entries, err := s.store.Attempts().Leaderboard(ctx, quizID, s.limit)
	if err != nil {
		return nil, apperr.Internal(err, "failed to build leaderboard")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

func (s *Service) read(ctx context.Context, quizID int64) ([]models.LeaderboardEntry, bool) {
	raw, err := s.rdb.Get(ctx, Key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("leaderboard cache read failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		}
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("discarding malformed leaderboard cache entry", zap.Int64("quiz_id", quizID), zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (s *Service) write(ctx context.Context, quizID int64, gen string, entries []models.LeaderboardEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn("leaderboard cache encode failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		return
	}
	keys := []string{Key(quizID), GenerationKey(quizID)}
	stored, err := setIfGeneration.Run(ctx, s.rdb, keys, gen, raw, s.ttlWithJitter().Milliseconds()).Int()
	if err != nil {
		s.logger.Warn("leaderboard cache write failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		return
	}
	if stored == 0 {
		s.logger.Debug("skipped stale leaderboard cache write", zap.Int64("quiz_id", quizID), zap.String("generation", gen))
	}
}

func (s *Service) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
