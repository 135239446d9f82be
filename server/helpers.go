package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/boltdb/bolt"

	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

// The server itself backs the distributor's collaborator interfaces

func (srv *Server) IsBlacklisted(a, b string) bool {
	return common.IsBlacklisted(srv.db, srv.Cfg, a, b)
}

func (srv *Server) CanInteract(from, to string) (string, bool) {
	return srv.Limiter.CanInteract(from, to)
}

func (srv *Server) RecordInteraction(from, to string) {
	srv.Limiter.Record(from, to)
}

// CreateOffer persists the offer, bumps campaign counters and pings the
// influencer
func (srv *Server) CreateOffer(o *common.Offer) (string, error) {
	if err := o.Check(); err != nil {
		return "", err
	}

	if o.Status == "" {
		o.Status = common.OfferPending
	}
	if o.CreatedAt == 0 {
		o.CreatedAt = time.Now().Unix()
	}

	if err := srv.db.Update(func(tx *bolt.Tx) (err error) {
		if o.Id, err = misc.GetNextIndex(tx, srv.Cfg.Bucket.Offer); err != nil {
			return err
		}
		if err = misc.PutTxJson(tx, srv.Cfg.Bucket.Offer, o.Id, o); err != nil {
			return err
		}

		if o.CampaignId != "" {
			var cmp common.Campaign
			if misc.GetTxJson(tx, srv.Cfg.Bucket.Campaign, o.CampaignId, &cmp) == nil {
				cmp.Metrics.OffersSent += 1
				if err := common.SaveCampaignTx(tx, srv.Cfg, &cmp); err != nil {
					return err
				}
				srv.Campaigns.SetCampaign(cmp.Id, &cmp)
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	go srv.offerNotify(o)

	return o.Id, nil
}

// WithdrawPending flips every still-pending offer for a campaign to
// withdrawn and reports how many it touched
func (srv *Server) WithdrawPending(campaignId string) (int, error) {
	var count int
	err := srv.db.Update(func(tx *bolt.Tx) error {
		bucket := misc.GetBucket(tx, srv.Cfg.Bucket.Offer)

		// Collect first; the bucket shouldn't be mutated mid-iteration
		var pending []*common.Offer
		bucket.ForEach(func(k, v []byte) error {
			var o common.Offer
			if err := json.Unmarshal(v, &o); err != nil {
				log.Println("error when unmarshalling offer", string(v))
				return nil
			}
			if o.CampaignId == campaignId && o.Status == common.OfferPending {
				pending = append(pending, &o)
			}
			return nil
		})

		now := time.Now().Unix()
		for _, o := range pending {
			o.Status = common.OfferWithdrawn
			o.RespondedAt = now
			if err := misc.PutTxJson(tx, srv.Cfg.Bucket.Offer, o.Id, o); err != nil {
				return err
			}
			count += 1
		}
		return nil
	})
	return count, err
}

func (srv *Server) saveOffer(o *common.Offer) error {
	return srv.db.Update(func(tx *bolt.Tx) error {
		return misc.PutTxJson(tx, srv.Cfg.Bucket.Offer, o.Id, o)
	})
}

func (srv *Server) saveCampaign(cmp *common.Campaign) error {
	err := srv.db.Update(func(tx *bolt.Tx) error {
		return common.SaveCampaignTx(tx, srv.Cfg, cmp)
	})
	if err == nil {
		if cmp.IsActive() {
			srv.Campaigns.SetCampaign(cmp.Id, cmp)
		} else {
			srv.Campaigns.Delete(cmp.Id)
		}
	}
	return err
}
