package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Analysis is the verdict of the restrictions on one request
type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

// RateLimiter decides whether an outgoing request may go through, based on
// a recent request history and a set of restrictions. When the server
// reports a rate limit anyway, a cooldown stopwatch blocks everything until
// the longest restriction window has passed
type RateLimiter struct {
	mu           sync.Mutex
	restrictions []Restriction // Restrictions to consider
	history      []time.Time   // History of requests
	duration     time.Duration // Min duration to wait for all restrictions to be lifted
	cooldown     Stopwatch
}

func NewRateLimiter(restrictions []Restriction) *RateLimiter {
	rl := RateLimiter{}
	rl.restrictions = make([]Restriction, len(restrictions))
	copy(rl.restrictions, restrictions)
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	rl.cooldown = NewStopwatch(rl.duration)
	return &rl
}

// Allow decides if a request may be performed now.
// A vital request that is not allowed yet will wait for the restrictions to
// lift before returning true; a non vital request is rejected right away
func (rl *RateLimiter) Allow(vital bool) bool {

	// Requests have an id only so the waiting of a vital request can be
	// followed in the logs
	requestid := uuid.New()
	for {
		rl.mu.Lock()
		if rl.cooldown.Running {
			if stopped := rl.cooldown.TimeStopped() >= 0; !stopped {
				rl.mu.Unlock()
				log.Warn().Msg("Rejecting request during server cooldown")
				return false
			}
			rl.cooldown.Stop()
		}

		rl.trim()
		analysis := rl.analyse()
		if analysis.allowed {
			rl.history = append(rl.history, time.Now())
			rl.mu.Unlock()
			return true
		}
		rl.mu.Unlock()

		if !vital {
			log.Warn().Msg("Rejecting a non vital request because restrictions do not allow it")
			return false
		}
		log.Warn().Msg(fmt.Sprintf("Vital request %s delayed %.1f seconds", requestid, analysis.wait.Seconds()))
		time.Sleep(analysis.wait)
	}
}

// ReceivedRateLimit tells the limiter the server rejected a request anyway.
// All requests are blocked until the longest restriction window has passed
func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cooldown.Start()
}

// Trim the current history, leaving only the requests that are young enough
// to be affected by at least one restriction
func (rl *RateLimiter) trim() {
	currentTime := time.Now()
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if currentTime.Sub(rl.history[i]) > rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse() Analysis {

	// Merge the analyses of all restrictions: the request has to be allowed
	// by every one of them, and the wait is the longest any of them asks for
	merged := Analysis{allowed: true}
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history)
		merged.allowed = merged.allowed && analysis.allowed
		if analysis.wait > merged.wait {
			merged.wait = analysis.wait
		}
	}
	return merged
}
