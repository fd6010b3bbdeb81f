package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
)

const keyPrefix = "course:"

// Redis is a course.Cache shared by every API instance, storing courses as JSON.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ course.Cache = (*Redis)(nil) // interface compliance check

// NewRedis connects to conf.Cache.RedisURL and checks the connection.
func NewRedis(ctx context.Context, conf *core.Config) (*Redis, error) {
	opts, err := redis.ParseURL(conf.Cache.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return NewRedisFromClient(client, conf.Cache.TTL), nil
}

func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(id int) string { return keyPrefix + strconv.Itoa(id) }

func (c *Redis) Get(ctx context.Context, id int) (course.Course, bool, error) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return course.Course{}, false, nil
		}
		return course.Course{}, false, errors.Wrap(err, "getting cached course")
	}
	var crs course.Course
	if err = json.Unmarshal(data, &crs); err != nil {
		return course.Course{}, false, errors.Wrap(err, "decoding cached course")
	}
	return crs, true, nil
}

func (c *Redis) Set(ctx context.Context, crs course.Course) error {
	data, err := json.Marshal(crs)
	if err != nil {
		return errors.Wrap(err, "encoding course")
	}
	return errors.Wrap(c.client.Set(ctx, key(crs.ID), data, c.ttl).Err(), "caching course")
}

func (c *Redis) Invalidate(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, key(id))
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "invalidating courses")
}

func (c *Redis) Purge(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning cached courses")
	}
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "purging courses")
}

func (c *Redis) Close() error { return c.client.Close() }
