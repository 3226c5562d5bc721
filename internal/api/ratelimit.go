package api

import (
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const maxTrackedOrigins = 4096

// originLimiter enforces the per-source connection budget: at most `limit`
// new connections per origin within the sliding window. Origins are tracked
// in a bounded LRU so a scan cannot grow the table without limit.
type originLimiter struct {
	cache *lru.Cache
	limit rate.Limit
	burst int
}

func newOriginLimiter(limit int, window time.Duration) *originLimiter {
	cache, _ := lru.New(maxTrackedOrigins)
	return &originLimiter{
		cache: cache,
		limit: rate.Every(window / time.Duration(limit)),
		burst: limit,
	}
}

func (l *originLimiter) Allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if v, ok := l.cache.Get(host); ok {
		return v.(*rate.Limiter).Allow()
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.cache.Add(host, lim)
	return lim.Allow()
}
