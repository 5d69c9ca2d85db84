package statuscheck

import (
	"context"
	"time"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker models the archive bucket reachability check.
type BucketChecker interface {
	HeadBucket(ctx context.Context) error
}

// Checker aggregates health checks for the external dependencies the
// /health endpoint reports on.
type Checker struct {
	redis   RedisPinger
	archive BucketChecker
}

// Options configures the Checker. Archive may be nil when S3 archiving is
// disabled.
type Options struct {
	Redis   RedisPinger
	Archive BucketChecker
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis   Status `json:"redis"`
	Archive Status `json:"archive"`
}

func New(opts Options) *Checker {
	return &Checker{redis: opts.Redis, archive: opts.Archive}
}

// Check runs all subsystem checks with a short per-check timeout.
func (c *Checker) Check(ctx context.Context) Summary {
	var sum Summary

	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if c.redis == nil {
		sum.Redis = Status{OK: false, Message: "not configured"}
	} else if err := c.redis.Ping(rctx); err != nil {
		sum.Redis = Status{OK: false, Message: err.Error()}
	} else {
		sum.Redis = Status{OK: true, Message: "ok"}
	}

	if c.archive == nil {
		sum.Archive = Status{OK: true, Message: "disabled"}
		return sum
	}
	actx, cancel2 := context.WithTimeout(ctx, 3*time.Second)
	defer cancel2()
	if err := c.archive.HeadBucket(actx); err != nil {
		sum.Archive = Status{OK: false, Message: err.Error()}
	} else {
		sum.Archive = Status{OK: true, Message: "ok"}
	}
	return sum
}

// OK reports whether every required subsystem is healthy.
func (s Summary) OK() bool { return s.Redis.OK && s.Archive.OK }
