package server

import (
	"encoding/json"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

type advertiserAnalytics struct {
	Campaigns        int32   `json:"campaigns"`
	ActiveCampaigns  int32   `json:"activeCampaigns"`
	OffersSent       int32   `json:"offersSent"`
	OffersAccepted   int32   `json:"offersAccepted"`
	Applications     int32   `json:"applications"`
	CommittedBudget  float64 `json:"committedBudget"`
	CompletedSpend   float64 `json:"completedSpend"`
	AcceptanceRate   float64 `json:"acceptanceRate"`
	AutomaticOffers  int32   `json:"automaticOffers"`
	ReplacementsUsed int     `json:"replacementsUsed"`
}

func getAdvertiserAnalytics(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var out advertiserAnalytics

		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.Campaign).ForEach(func(k, v []byte) error {
				var cmp common.Campaign
				if json.Unmarshal(v, &cmp) != nil || cmp.AdvertiserId != cu.ID {
					return nil
				}
				out.Campaigns += 1
				if cmp.IsActive() {
					out.ActiveCampaigns += 1
				}
				out.Applications += cmp.Metrics.Applications
				out.ReplacementsUsed += srv.Tracker.Replacements(cmp.Id)
				return nil
			})
		})

		common.ForEachOffer(srv.db, srv.Cfg, func(o *common.Offer) bool {
			if o.AdvertiserId != cu.ID {
				return true
			}
			out.OffersSent += 1
			if o.Automatic {
				out.AutomaticOffers += 1
			}
			switch o.Status {
			case common.OfferAccepted, common.OfferInProgress:
				out.OffersAccepted += 1
				out.CommittedBudget += o.Details.Price
			case common.OfferCompleted:
				out.OffersAccepted += 1
				out.CommittedBudget += o.Details.Price
				out.CompletedSpend += o.Details.Price
			}
			return true
		})

		if out.OffersSent > 0 {
			out.AcceptanceRate = misc.TruncateFloat(float64(out.OffersAccepted)/float64(out.OffersSent)*100, 2)
		}

		misc.WriteJSON(c, 200, &out)
	}
}

type influencerAnalytics struct {
	OffersReceived   int32   `json:"offersReceived"`
	OffersAccepted   int32   `json:"offersAccepted"`
	OffersCompleted  int32   `json:"offersCompleted"`
	PendingOffers    int32   `json:"pendingOffers"`
	Earnings         float64 `json:"earnings"`
	PotentialEarning float64 `json:"potentialEarnings"`
	ApplicationsSent int32   `json:"applicationsSent"`
}

func getInfluencerAnalytics(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var out influencerAnalytics

		common.ForEachOffer(srv.db, srv.Cfg, func(o *common.Offer) bool {
			if o.InfluencerId != cu.ID {
				return true
			}
			out.OffersReceived += 1
			switch o.Status {
			case common.OfferPending:
				out.PendingOffers += 1
				out.PotentialEarning += o.Details.Price
			case common.OfferAccepted, common.OfferInProgress:
				out.OffersAccepted += 1
				out.PotentialEarning += o.Details.Price
			case common.OfferCompleted:
				out.OffersAccepted += 1
				out.OffersCompleted += 1
				out.Earnings += o.Details.Price
			}
			return true
		})

		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.Application).ForEach(func(k, v []byte) error {
				var app common.Application
				if json.Unmarshal(v, &app) == nil && app.ApplicantId == cu.ID {
					out.ApplicationsSent += 1
				}
				return nil
			})
		})

		misc.WriteJSON(c, 200, &out)
	}
}
