package match

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/influo/influo/internal/common"
)

var (
	ErrNoCandidates = errors.New("no matching influencers found")
	ErrNoAutomatic  = errors.New("campaign has no automatic settings")
)

// Guard covers the two per-pair policy checks every offer attempt must
// pass. Failing either skips the candidate, it never aborts the batch.
type Guard interface {
	IsBlacklisted(a, b string) bool
	CanInteract(from, to string) (reason string, ok bool)
	RecordInteraction(from, to string)
}

// OfferStore persists offers and withdraws leftovers once the campaign
// hits its target
type OfferStore interface {
	CreateOffer(o *common.Offer) (string, error)
	WithdrawPending(campaignId string) (int, error)
}

// Result is what a distribution run reports back. Partial success is the
// expected outcome: Success just means at least one offer went out.
type Result struct {
	Success       bool     `json:"success"`
	OffersCreated int      `json:"offersCreated"`
	TotalBudget   float64  `json:"totalBudget"`
	Errors        []string `json:"errors,omitempty"`
}

type Distributor struct {
	Store   OfferStore
	Guard   Guard
	Tracker *Tracker

	// Sleep is swapped out in tests and compressed in sandbox mode; nil
	// means time.Sleep
	Sleep func(time.Duration)
}

func (d *Distributor) sleep(dur time.Duration) {
	if d.Sleep != nil {
		d.Sleep(dur)
		return
	}
	time.Sleep(dur)
}

// TotalToSend is the overbooked offer count for a target
func TotalToSend(target, overbookPct int) int {
	return target + int(math.Ceil(float64(target)*float64(overbookPct)/100))
}

// Run walks the ranked candidates in batches, creating offers until the
// overbooked total is sent or the accepted target is reached. Individual
// failures are collected and the loop keeps going.
func (d *Distributor) Run(cmp *common.Campaign, ranked []*Scored) *Result {
	res := &Result{}

	as := cmp.Automatic
	if as == nil || !as.Enabled {
		res.Errors = append(res.Errors, ErrNoAutomatic.Error())
		return res
	}

	if len(ranked) == 0 {
		res.Errors = append(res.Errors, ErrNoCandidates.Error())
		return res
	}

	total := TotalToSend(as.TargetInfluencerCount, as.OverbookingPercentage)
	if total > len(ranked) {
		total = len(ranked)
	}
	ranked = ranked[:total]

	batchSize := as.BatchSize
	if batchSize <= 0 {
		batchSize = total
	}

	delay := time.Duration(as.BatchDelay) * time.Minute

	gen := d.Tracker.BeginRun(cmp.Id)

	for start := 0; start < total; start += batchSize {
		// Checked at the top of each batch, never mid-batch
		if d.Tracker.Stopped(cmp.Id, gen) {
			log.Println("Distribution stopped for campaign", cmp.Id)
			break
		}

		if d.Tracker.Accepted(cmp.Id) >= as.TargetInfluencerCount {
			if n, err := d.Store.WithdrawPending(cmp.Id); err != nil {
				res.Errors = append(res.Errors, "failed withdrawing pending offers: "+err.Error())
			} else if n > 0 {
				log.Println("Target reached, withdrew", n, "pending offers for campaign", cmp.Id)
			}
			break
		}

		if start > 0 {
			d.sleep(delay)

			// The delay is long; both stop conditions get re-checked
			// before dispatching
			if d.Tracker.Stopped(cmp.Id, gen) {
				break
			}
			if d.Tracker.Accepted(cmp.Id) >= as.TargetInfluencerCount {
				if _, err := d.Store.WithdrawPending(cmp.Id); err != nil {
					res.Errors = append(res.Errors, "failed withdrawing pending offers: "+err.Error())
				}
				break
			}
		}

		end := start + batchSize
		if end > total {
			end = total
		}

		for _, sc := range ranked[start:end] {
			if err := d.offer(cmp, sc, res); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("influencer %s: %v", sc.Card.UserId, err))
			}
		}
	}

	res.Success = res.OffersCreated > 0
	return res
}

// Replacement sends a single offer to the best unused candidate after a
// dropout. Previously-offered influencers are excluded.
func (d *Distributor) Replacement(cmp *common.Campaign, ranked []*Scored) *Result {
	res := &Result{}

	for _, sc := range ranked {
		if d.Tracker.WasOffered(cmp.Id, sc.Card.UserId) {
			continue
		}
		if err := d.offer(cmp, sc, res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("influencer %s: %v", sc.Card.UserId, err))
			continue
		}
		break
	}

	if res.OffersCreated == 0 && len(res.Errors) == 0 {
		res.Errors = append(res.Errors, ErrNoCandidates.Error())
	}

	res.Success = res.OffersCreated > 0
	return res
}

func (d *Distributor) offer(cmp *common.Campaign, sc *Scored, res *Result) error {
	card := sc.Card

	if d.Tracker.WasOffered(cmp.Id, card.UserId) {
		return errors.New("already offered")
	}

	if d.Guard.IsBlacklisted(cmp.AdvertiserId, card.UserId) {
		return errors.New("blacklisted")
	}

	// A rate-limited pair is skipped without recording the attempt
	if reason, ok := d.Guard.CanInteract(cmp.AdvertiserId, card.UserId); !ok {
		return errors.New(reason)
	}

	contentType, price, ok := card.PriceFor(cmp.Filters.ContentTypes)
	if !ok {
		return errors.New("no priced integration matching campaign content types")
	}

	// Clamp into the campaign's budget band
	if price < cmp.Budget.Min {
		price = cmp.Budget.Min
	}
	if price > cmp.Budget.Max {
		price = cmp.Budget.Max
	}

	o := &common.Offer{
		InfluencerId: card.UserId,
		AdvertiserId: cmp.AdvertiserId,
		CampaignId:   cmp.Id,
		CardId:       card.Id,
		Status:       common.OfferPending,
		Automatic:    true,
		Score:        sc.Score,
		Details: common.OfferDetails{
			Price:       price,
			ContentType: contentType,
		},
		CreatedAt: time.Now().Unix(),
	}

	if _, err := d.Store.CreateOffer(o); err != nil {
		return err
	}

	d.Guard.RecordInteraction(cmp.AdvertiserId, card.UserId)
	d.Tracker.OfferSent(cmp.Id, card.UserId)

	res.OffersCreated += 1
	res.TotalBudget += price

	return nil
}
