package match

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/boltdb/bolt"

	"github.com/influo/influo/config"
	"github.com/influo/influo/misc"
)

// Tracking follows one campaign's distribution progress. It's persisted
// to its own bucket on every mutation so a restart picks up mid-flight
// campaigns instead of resetting their counts.
type Tracking struct {
	CampaignId       string   `json:"campaignId"`
	AcceptedCount    int      `json:"acceptedCount"`
	SentOffers       []string `json:"sentOffers,omitempty"` // influencer ids already offered
	ReplacementCount int      `json:"replacementCount,omitempty"`
	UpdatedAt        int64    `json:"updatedAt,omitempty"`
}

type Tracker struct {
	db  *bolt.DB
	cfg *config.Config

	mux     sync.Mutex
	m       map[string]*Tracking
	cancels map[string]bool
	gens    map[string]uint64
}

func NewTracker(db *bolt.DB, cfg *config.Config) *Tracker {
	t := &Tracker{
		db:      db,
		cfg:     cfg,
		m:       make(map[string]*Tracking),
		cancels: make(map[string]bool),
		gens:    make(map[string]uint64),
	}

	// Reload whatever was mid-flight before the last shutdown
	db.View(func(tx *bolt.Tx) error {
		return misc.GetBucket(tx, cfg.Bucket.Tracking).ForEach(func(k, v []byte) error {
			var tr Tracking
			if err := json.Unmarshal(v, &tr); err != nil {
				log.Println("error when unmarshalling tracking", string(v))
				return nil
			}
			t.m[tr.CampaignId] = &tr
			return nil
		})
	})

	return t
}

func (t *Tracker) get(cid string) *Tracking {
	tr, ok := t.m[cid]
	if !ok {
		tr = &Tracking{CampaignId: cid}
		t.m[cid] = tr
	}
	return tr
}

func (t *Tracker) save(tr *Tracking) {
	tr.UpdatedAt = time.Now().Unix()
	if err := t.db.Update(func(tx *bolt.Tx) error {
		return misc.PutTxJson(tx, t.cfg.Bucket.Tracking, tr.CampaignId, tr)
	}); err != nil {
		log.Println("Err saving tracking for", tr.CampaignId, err)
	}
}

// Get returns a copy so callers can't mutate tracking state behind the
// lock's back
func (t *Tracker) Get(cid string) Tracking {
	t.mux.Lock()
	defer t.mux.Unlock()
	tr := t.get(cid)
	cp := *tr
	cp.SentOffers = append([]string(nil), tr.SentOffers...)
	return cp
}

func (t *Tracker) OfferSent(cid, infId string) {
	t.mux.Lock()
	defer t.mux.Unlock()
	tr := t.get(cid)
	tr.SentOffers = append(tr.SentOffers, infId)
	t.save(tr)
}

func (t *Tracker) WasOffered(cid, infId string) bool {
	t.mux.Lock()
	defer t.mux.Unlock()
	for _, id := range t.get(cid).SentOffers {
		if id == infId {
			return true
		}
	}
	return false
}

func (t *Tracker) Accepted(cid string) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.get(cid).AcceptedCount
}

// MarkAccepted bumps the accepted count and returns the new value
func (t *Tracker) MarkAccepted(cid string) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	tr := t.get(cid)
	tr.AcceptedCount += 1
	t.save(tr)
	return tr.AcceptedCount
}

// MarkDropout decrements the accepted count after a post-acceptance
// withdrawal; it never goes below zero
func (t *Tracker) MarkDropout(cid string) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	tr := t.get(cid)
	if tr.AcceptedCount > 0 {
		tr.AcceptedCount -= 1
	}
	t.save(tr)
	return tr.AcceptedCount
}

// MarkReplacement bumps the replacement counter and returns the new value
func (t *Tracker) MarkReplacement(cid string) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	tr := t.get(cid)
	tr.ReplacementCount += 1
	t.save(tr)
	return tr.ReplacementCount
}

func (t *Tracker) Replacements(cid string) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.get(cid).ReplacementCount
}

// BeginRun stamps a new distribution run for the campaign and returns its
// generation. A prior run still sleeping through a batch delay sees the
// bump at its next checkpoint and stops, so two runs never dispatch
// concurrently.
func (t *Tracker) BeginRun(cid string) uint64 {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.gens[cid] += 1
	return t.gens[cid]
}

// Stopped reports whether a run should quit: its campaign was cancelled or
// a newer run has taken over
func (t *Tracker) Stopped(cid string, gen uint64) bool {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.cancels[cid] || t.gens[cid] != gen
}

// Cancel flags an in-flight distribution run to stop before its next
// batch or delay. Pausing a campaign mid-run flips this.
func (t *Tracker) Cancel(cid string) {
	t.mux.Lock()
	t.cancels[cid] = true
	t.mux.Unlock()
}

func (t *Tracker) Cancelled(cid string) bool {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.cancels[cid]
}

func (t *Tracker) ClearCancel(cid string) {
	t.mux.Lock()
	delete(t.cancels, cid)
	t.mux.Unlock()
}

// Clear drops a campaign's tracking row entirely (archive/delete path)
func (t *Tracker) Clear(cid string) {
	t.mux.Lock()
	defer t.mux.Unlock()
	delete(t.m, cid)
	delete(t.cancels, cid)
	delete(t.gens, cid)
	if err := t.db.Update(func(tx *bolt.Tx) error {
		return misc.DelBucketBytes(tx, t.cfg.Bucket.Tracking, cid)
	}); err != nil {
		log.Println("Err clearing tracking for", cid, err)
	}
}
