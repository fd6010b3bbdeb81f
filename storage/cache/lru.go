package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/academia-labs/academia/core/course"
)

const defaultSize = 1024

// LRU is an in-process course.Cache bounded in size, whose entries expire after ttl.
type LRU struct {
	lru *expirable.LRU[int, course.Course]
}

var _ course.Cache = (*LRU)(nil) // interface compliance check

// NewLRU returns an LRU cache; a zero ttl disables expiry.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = defaultSize
	}
	return &LRU{lru: expirable.NewLRU[int, course.Course](size, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, id int) (course.Course, bool, error) {
	crs, ok := c.lru.Get(id)
	return crs, ok, nil
}

func (c *LRU) Set(_ context.Context, crs course.Course) error {
	c.lru.Add(crs.ID, crs)
	return nil
}

func (c *LRU) Invalidate(_ context.Context, ids ...int) error {
	for _, id := range ids {
		c.lru.Remove(id)
	}
	return nil
}

func (c *LRU) Purge(context.Context) error {
	c.lru.Purge()
	return nil
}

func (c *LRU) Len() int { return c.lru.Len() }
