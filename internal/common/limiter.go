package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/influo/influo/misc"
)

const limiterSweep = 30 * time.Minute

// LimitSet caps repeat interactions between the same ordered pair of users
// to one per rolling window. Keys are "from>to" so an advertiser hitting
// an influencer doesn't block the influencer reaching back.
type LimitSet struct {
	m      map[string][]int32
	window int32 // hours
	l      sync.RWMutex
}

func NewLimitSet(windowHours int) *LimitSet {
	if windowHours <= 0 {
		windowHours = 1
	}
	c := &LimitSet{m: make(map[string][]int32), window: int32(windowHours)}
	c.clean()
	return c
}

func pairKey(from, to string) string {
	return from + ">" + to
}

func (ls *LimitSet) Record(from, to string) {
	ls.l.Lock()
	ls.m[pairKey(from, to)] = append(ls.m[pairKey(from, to)], int32(time.Now().Unix()))
	ls.l.Unlock()
}

// CanInteract reports whether the pair is still inside its cooldown; the
// returned reason is human-readable and safe to surface
func (ls *LimitSet) CanInteract(from, to string) (reason string, ok bool) {
	ls.l.RLock()
	v, found := ls.m[pairKey(from, to)]
	ls.l.RUnlock()

	if !found || len(v) == 0 {
		return "", true
	}

	for _, ts := range v {
		if misc.WithinLast(ts, ls.window) {
			return fmt.Sprintf("already contacted within the last %d hour(s)", ls.window), false
		}
	}

	return "", true
}

func (ls *LimitSet) clean() {
	// Periodically clear out entries that have aged out of the window
	ticker := time.NewTicker(limiterSweep)
	go func() {
		for range ticker.C {
			ls.l.Lock()
			for key, stamps := range ls.m {
				live := stamps[:0]
				for _, ts := range stamps {
					if misc.WithinLast(ts, ls.window) {
						live = append(live, ts)
					}
				}
				if len(live) == 0 {
					delete(ls.m, key)
				} else {
					ls.m[key] = live
				}
			}
			ls.l.Unlock()
		}
	}()
}
