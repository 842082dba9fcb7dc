package app

import (
	"context"
	"time"
)

func (c *Collector) SetSleep(fn func(context.Context, time.Duration) bool) { c.sleep = fn }

func (s *CollectionService) SetSleep(fn func(context.Context, time.Duration) bool) { s.sleep = fn }
