package server

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

var errOfferNotFound = errors.New("offer not found")

// postOffer is the manual path: an advertiser hand-picks an influencer
// outside of any automatic run. The same blacklist and rate limit rules
// apply.
func postOffer(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var o common.Offer
		if err := misc.BindJSON(c, &o); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		o.AdvertiserId = cu.ID
		o.Automatic = false
		o.Score = 0
		o.Status = common.OfferPending

		if err := o.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		if srv.IsBlacklisted(o.AdvertiserId, o.InfluencerId) {
			misc.AbortWithErr(c, 400, errors.New("blacklisted"))
			return
		}
		if reason, ok := srv.CanInteract(o.AdvertiserId, o.InfluencerId); !ok {
			misc.AbortWithErr(c, 429, errors.New(reason))
			return
		}

		id, err := srv.CreateOffer(&o)
		if err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		srv.RecordInteraction(o.AdvertiserId, o.InfluencerId)

		misc.WriteJSON(c, 200, misc.StatusOK(id))
	}
}

func getOffers(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)
		campaignId := c.Query("campaign")

		offers := make([]*common.Offer, 0, 16)
		common.ForEachOffer(srv.db, srv.Cfg, func(o *common.Offer) bool {
			if o.InfluencerId != cu.ID && o.AdvertiserId != cu.ID && !cu.IsAdmin() {
				return true
			}
			if campaignId != "" && o.CampaignId != campaignId {
				return true
			}
			offers = append(offers, o)
			return true
		})

		misc.WriteJSON(c, 200, offers)
	}
}

type offerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Which side of the table may request which status
var influencerOfferMoves = []string{common.OfferAccepted, common.OfferDeclined, common.OfferWithdrawn, common.OfferCompleted}
var advertiserOfferMoves = []string{common.OfferWithdrawn, common.OfferInProgress, common.OfferCompleted}

// putOfferResponse handles every offer status change. Accepting an
// automatic offer feeds the campaign's accepted count; hitting the target
// withdraws the remaining pending offers and pauses the campaign. Only a
// post-acceptance withdrawal counts as a dropout and may trigger a
// replacement offer; declines of pending offers are already priced in by
// overbooking.
func putOfferResponse(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		o := common.GetOffer(c.Param("id"), srv.db, srv.Cfg)
		if o == nil {
			misc.AbortWithErr(c, 404, errOfferNotFound)
			return
		}

		var payload offerResponse
		if err := misc.BindJSON(c, &payload); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		var allowed []string
		switch cu.ID {
		case o.InfluencerId:
			allowed = influencerOfferMoves
		case o.AdvertiserId:
			allowed = advertiserOfferMoves
		default:
			if !cu.IsAdmin() {
				misc.AbortWithErr(c, 401, errNotYours)
				return
			}
			allowed = []string{payload.Status}
		}

		if !common.IsInList(allowed, payload.Status) {
			misc.AbortWithErr(c, 401, errors.New("status change not allowed for your role"))
			return
		}
		if !o.CanTransition(payload.Status) {
			misc.AbortWithErr(c, 400, common.ErrBadStatus)
			return
		}

		wasAccepted := o.Status == common.OfferAccepted || o.Status == common.OfferInProgress

		o.Status = payload.Status
		o.RespondedAt = time.Now().Unix()
		if payload.Message != "" {
			o.Details.Message = payload.Message
		}

		if err := srv.saveOffer(o); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		if o.Automatic && o.CampaignId != "" {
			switch payload.Status {
			case common.OfferAccepted:
				srv.onOfferAccepted(o)
			case common.OfferWithdrawn:
				if wasAccepted {
					srv.onOfferDropout(o)
				}
			}
		}

		misc.WriteJSON(c, 200, misc.StatusOK(o.Id))
	}
}

func (srv *Server) onOfferAccepted(o *common.Offer) {
	cmp := common.GetCampaign(o.CampaignId, srv.db, srv.Cfg)
	if cmp == nil {
		return
	}

	cmp.Metrics.OffersAccepted += 1

	accepted := srv.Tracker.MarkAccepted(cmp.Id)

	target := 0
	if cmp.Automatic != nil {
		target = cmp.Automatic.TargetInfluencerCount
	}

	if target > 0 && accepted >= target {
		// Target hit: the race is over for everyone still pending
		srv.Tracker.Cancel(cmp.Id)
		if _, err := srv.WithdrawPending(cmp.Id); err != nil {
			srv.Alert("Failed withdrawing pending offers for campaign "+cmp.Id, err)
		}

		cmp.Status = common.CampaignPaused
		cmp.PausedReason = common.PausedTargetReached
		cmp.UpdatedAt = time.Now().Unix()
		if err := srv.saveCampaign(cmp); err != nil {
			srv.Alert("Failed pausing campaign "+cmp.Id+" after target reached", err)
			return
		}

		go srv.targetReachedNotify(cmp, srv.acceptedBudget(cmp.Id))
		return
	}

	cmp.UpdatedAt = time.Now().Unix()
	if err := srv.saveCampaign(cmp); err != nil {
		srv.Alert("Failed saving campaign "+cmp.Id, err)
	}
}

// onOfferDropout runs when an influencer backs out of an already accepted
// automatic offer
func (srv *Server) onOfferDropout(o *common.Offer) {
	cmp := common.GetCampaign(o.CampaignId, srv.db, srv.Cfg)
	if cmp == nil {
		return
	}

	srv.Tracker.MarkDropout(cmp.Id)
	if cmp.Metrics.OffersAccepted > 0 {
		cmp.Metrics.OffersAccepted -= 1
	}
	cmp.UpdatedAt = time.Now().Unix()
	if err := srv.saveCampaign(cmp); err != nil {
		srv.Alert("Failed saving campaign "+cmp.Id, err)
	}

	go srv.runReplacement(cmp)
}

// acceptedBudget sums the prices of a campaign's accepted offers
func (srv *Server) acceptedBudget(campaignId string) float64 {
	var total float64
	common.ForEachOffer(srv.db, srv.Cfg, func(o *common.Offer) bool {
		if o.CampaignId == campaignId {
			switch o.Status {
			case common.OfferAccepted, common.OfferInProgress, common.OfferCompleted:
				total += o.Details.Price
			}
		}
		return true
	})
	return total
}
