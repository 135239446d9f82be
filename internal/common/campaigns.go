package common

import (
	"sync"

	"github.com/boltdb/bolt"

	"github.com/influo/influo/config"
)

// Campaigns is a live store of active campaigns refreshed off the db on a
// ticker so request paths and the matching engine avoid constant
// unmarshalling
type Campaigns struct {
	mux   sync.RWMutex
	store map[string]*Campaign
}

func NewCampaigns() *Campaigns {
	return &Campaigns{
		store: make(map[string]*Campaign),
	}
}

func (p *Campaigns) Set(db *bolt.DB, cfg *config.Config) {
	cmps := GetAllActiveCampaigns(db, cfg)
	p.mux.Lock()
	p.store = cmps
	p.mux.Unlock()
}

func (p *Campaigns) SetCampaign(id string, cmp *Campaign) {
	p.mux.Lock()
	p.store[id] = cmp
	p.mux.Unlock()
}

func (p *Campaigns) Delete(id string) {
	p.mux.Lock()
	delete(p.store, id)
	p.mux.Unlock()
}

func (p *Campaigns) GetStore() map[string]*Campaign {
	store := make(map[string]*Campaign)
	p.mux.RLock()
	for cId, cmp := range p.store {
		store[cId] = cmp
	}
	p.mux.RUnlock()
	return store
}

func (p *Campaigns) Get(id string) (*Campaign, bool) {
	p.mux.RLock()
	val, ok := p.store[id]
	p.mux.RUnlock()
	return val, ok
}
