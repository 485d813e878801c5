package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"exam-sync-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ExamRepository is the backing store the cache sits in front of.
type ExamRepository interface {
	GetExam(ctx context.Context, code string) (domain.Exam, error)
	ListExams(ctx context.Context) ([]domain.Exam, error)
	UpsertExam(ctx context.Context, exam domain.Exam) error
}

// ExamCache caches exam JSON in Redis keyed by normalized code and falls
// back to the backing repository on miss. Every attempt submission re-reads
// the canonical exam, so the cache carries most of the read load.
type ExamCache struct {
	client *redis.Client
	inner  ExamRepository
	ttl    time.Duration
	sf     singleflight.Group
}

func NewExamCache(client *redis.Client, inner ExamRepository, ttl time.Duration) *ExamCache {
	return &ExamCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
	}
}

func (c *ExamCache) GetExam(ctx context.Context, code string) (domain.Exam, error) {
	key := c.key(code)

	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		var exam domain.Exam
		if err := json.Unmarshal([]byte(raw), &exam); err == nil {
			return exam, nil
		}
		// Corrupt cache entry: drop it and fall through to the loader.
		_ = c.client.Del(ctx, key).Err()
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if raw, err := c.client.Get(ctx, key).Result(); err == nil {
			var exam domain.Exam
			if err := json.Unmarshal([]byte(raw), &exam); err == nil {
				return exam, nil
			}
		}

		exam, err := c.inner.GetExam(ctx, code)
		if err != nil {
			return domain.Exam{}, err
		}

		if data, err := json.Marshal(exam); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

func (c *ExamCache) ListExams(ctx context.Context) ([]domain.Exam, error) {
	return c.inner.ListExams(ctx)
}

// UpsertExam writes through and drops the cached copy so the next read sees
// the replacement.
func (c *ExamCache) UpsertExam(ctx context.Context, exam domain.Exam) error {
	if err := c.inner.UpsertExam(ctx, exam); err != nil {
		return err
	}
	return c.client.Del(ctx, c.key(exam.Code)).Err()
}

func (c *ExamCache) key(code string) string {
	return "exam:" + domain.NormalizeCode(code)
}

func (c *ExamCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
