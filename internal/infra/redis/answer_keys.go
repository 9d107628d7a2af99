// Package redis caches quiz answer keys so a room full of near-simultaneous
// submissions does not hammer the question table.
package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"classboard/internal/domain"
	"classboard/internal/infra/memory"
)

// AnswerKeyCache stores answer keys as two hashes per quiz and falls back
// to a loader on cache miss:
//
//	HSET quiz:{quizID}:answers {questionID} {correctOptionIndex}
//	HSET quiz:{quizID}:points  {questionID} {points}
type AnswerKeyCache struct {
	client *redis.Client
	loader memory.AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader memory.AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) AnswerKey(ctx context.Context, quizID string) (domain.AnswerKey, error) {
	answersKey := c.answersKey(quizID)
	pointsKey := c.pointsKey(quizID)

	answers, err := c.client.HGetAll(ctx, answersKey).Result()
	if err == nil && len(answers) > 0 {
		points, _ := c.client.HGetAll(ctx, pointsKey).Result()
		return buildKeyFromCache(answers, points), nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		answers, err := c.client.HGetAll(ctx, answersKey).Result()
		if err == nil && len(answers) > 0 {
			points, _ := c.client.HGetAll(ctx, pointsKey).Result()
			return buildKeyFromCache(answers, points), nil
		}

		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return nil, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		for questionID, entry := range key {
			pipe.HSet(ctx, answersKey, questionID, entry.CorrectOption)
			pipe.HSet(ctx, pointsKey, questionID, entry.Points)
		}
		if ttl > 0 {
			pipe.Expire(ctx, answersKey, ttl)
			pipe.Expire(ctx, pointsKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.AnswerKey), nil
}

func (c *AnswerKeyCache) answersKey(quizID string) string {
	return "quiz:" + quizID + ":answers"
}

func (c *AnswerKeyCache) pointsKey(quizID string) string {
	return "quiz:" + quizID + ":points"
}

func buildKeyFromCache(answers, points map[string]string) domain.AnswerKey {
	key := make(domain.AnswerKey, len(answers))
	for questionID, rawIndex := range answers {
		index, err := strconv.Atoi(rawIndex)
		if err != nil {
			continue
		}
		pts := 1
		if raw, ok := points[questionID]; ok {
			if p, err := strconv.Atoi(raw); err == nil && p > 0 {
				pts = p
			}
		}
		key[questionID] = domain.AnswerKeyEntry{CorrectOption: index, Points: pts}
	}
	return key
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
