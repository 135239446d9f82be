package common

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/boltdb/bolt"

	"github.com/influo/influo/config"
)

const (
	OfferPending    = "pending"
	OfferAccepted   = "accepted"
	OfferDeclined   = "declined"
	OfferWithdrawn  = "withdrawn"
	OfferInProgress = "in_progress"
	OfferCompleted  = "completed"
)

var (
	ErrSameParty   = errors.New("offer parties must be distinct")
	ErrBadStatus   = errors.New("invalid status transition")
	ErrMissingUser = errors.New("missing party id")
)

type OfferDetails struct {
	Price        float64  `json:"price"`
	ContentType  string   `json:"contentType"`
	Deliverables []string `json:"deliverables,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// Offer is an outgoing bid for an influencer, either placed manually by an
// advertiser or created by the distribution engine. Do NOT confuse this
// with a Campaign.
type Offer struct {
	Id string `json:"id"`

	InfluencerId string `json:"influencerId"`
	AdvertiserId string `json:"advertiserId"`
	CampaignId   string `json:"campaignId,omitempty"`
	CardId       string `json:"cardId,omitempty"`

	Details OfferDetails `json:"details"`

	Status string `json:"status"`

	// Set by the distribution engine
	Automatic bool    `json:"automatic,omitempty"`
	Score     float64 `json:"score,omitempty"`

	CreatedAt   int64 `json:"createdAt,omitempty"`
	RespondedAt int64 `json:"respondedAt,omitempty"`
}

func (o *Offer) Check() error {
	if o.InfluencerId == "" || o.AdvertiserId == "" {
		return ErrMissingUser
	}
	if o.InfluencerId == o.AdvertiserId {
		return ErrSameParty
	}
	if o.Details.Price < 0 {
		return errors.New("offer price cannot be negative")
	}
	return nil
}

var offerTransitions = map[string][]string{
	OfferPending:    {OfferAccepted, OfferDeclined, OfferWithdrawn},
	OfferAccepted:   {OfferInProgress, OfferWithdrawn, OfferCompleted},
	OfferInProgress: {OfferCompleted, OfferWithdrawn},
}

func (o *Offer) CanTransition(to string) bool {
	for _, s := range offerTransitions[o.Status] {
		if s == to {
			return true
		}
	}
	return false
}

func GetOffer(id string, db *bolt.DB, cfg *config.Config) *Offer {
	var (
		v []byte
		o Offer
	)
	if err := db.View(func(tx *bolt.Tx) error {
		v = tx.Bucket([]byte(cfg.Bucket.Offer)).Get([]byte(id))
		return nil
	}); err != nil {
		return nil
	}
	if err := json.Unmarshal(v, &o); err != nil {
		return nil
	}
	return &o
}

// ForEachOffer walks the offer bucket; the callback returning false stops
// the walk early
func ForEachOffer(db *bolt.DB, cfg *config.Config, fn func(o *Offer) bool) {
	db.View(func(tx *bolt.Tx) error {
		tx.Bucket([]byte(cfg.Bucket.Offer)).ForEach(func(k, v []byte) error {
			var o Offer
			if err := json.Unmarshal(v, &o); err != nil {
				log.Println("error when unmarshalling offer", string(v))
				return nil
			}
			if !fn(&o) {
				return errors.New("done")
			}
			return nil
		})
		return nil
	})
}
