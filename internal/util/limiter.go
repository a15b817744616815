/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package util

import (
	"sync"

	"golang.org/x/time/rate"
)

type KeyedLimiter interface {
	Get(key string) *rate.Limiter
}

type keyedLimiter struct {
	mut            sync.RWMutex
	limiters       map[string]*rate.Limiter
	limiterFactory func() *rate.Limiter
}

func (l *keyedLimiter) Get(key string) *rate.Limiter {
	l.mut.RLock()
	limiter, ok := l.limiters[key]
	l.mut.RUnlock()
	if !ok {
		l.mut.Lock()
		limiter2, ok2 := l.limiters[key]
		if ok2 {
			l.mut.Unlock()
			return limiter2
		}
		limiter = l.limiterFactory()
		l.limiters[key] = limiter
		l.mut.Unlock()
		return limiter
	}
	return limiter
}

// NewKeyedLimiter allows perSecond events for each key. Zero or less means unlimited.
func NewKeyedLimiter(perSecond float64) *keyedLimiter {
	limit := rate.Limit(perSecond)
	burst := 1
	if perSecond <= 0 {
		limit = rate.Inf
		burst = 0
	}
	return &keyedLimiter{
		limiters: map[string]*rate.Limiter{},
		limiterFactory: func() *rate.Limiter {
			return rate.NewLimiter(limit, burst)
		},
	}
}
