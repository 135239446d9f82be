package server

import (
	"errors"
	"strings"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

var errCardNotFound = errors.New("card not found")

func postInfluencerCard(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var card common.InfluencerCard
		if err := misc.BindJSON(c, &card); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		card.UserId = cu.ID
		card.Active = true
		card.Deleted = false
		// Fresh cards wait for a moderator before they hit the listing
		card.ModerationStatus = common.ModerationPending
		card.ModerationNote = ""
		card.Rating = 0
		card.CompletedCampaigns = 0

		if err := card.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		now := time.Now().Unix()
		card.CreatedAt, card.UpdatedAt = now, now

		if err := srv.db.Update(func(tx *bolt.Tx) (err error) {
			if card.Id, err = misc.GetNextIndex(tx, srv.Cfg.Bucket.InfluencerCard); err != nil {
				return err
			}
			return misc.PutTxJson(tx, srv.Cfg.Bucket.InfluencerCard, card.Id, &card)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(card.Id))
	}
}

func (srv *Server) ownedInfluencerCard(c *gin.Context, id string) *common.InfluencerCard {
	card := common.GetInfluencerCard(id, srv.db, srv.Cfg)
	if card == nil || card.Deleted {
		misc.AbortWithErr(c, 404, errCardNotFound)
		return nil
	}
	cu := auth.GetCtxUser(c)
	if card.UserId != cu.ID && !cu.IsAdmin() {
		misc.AbortWithErr(c, 401, errNotYours)
		return nil
	}
	return card
}

// putInfluencerCard edits a card; substantive edits send it back through
// moderation
func putInfluencerCard(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		card := srv.ownedInfluencerCard(c, c.Param("id"))
		if card == nil {
			return
		}

		var upd common.InfluencerCard
		if err := misc.BindJSON(c, &upd); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		card.Platform = upd.Platform
		card.Handle = upd.Handle
		card.Followers = upd.Followers
		card.EngagementRate = upd.EngagementRate
		card.AvgViews = upd.AvgViews
		card.Audience = upd.Audience
		card.ContentTypes = upd.ContentTypes
		card.Pricing = upd.Pricing
		card.ResponseTimeHours = upd.ResponseTimeHours
		card.DeliveryTimeDays = upd.DeliveryTimeDays
		card.Active = upd.Active
		card.ModerationStatus = common.ModerationPending
		card.ModerationNote = ""

		if err := card.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}
		card.UpdatedAt = time.Now().Unix()

		if err := srv.saveInfluencerCard(card); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(card.Id))
	}
}

// deactivateInfluencerCard soft-deletes: the card drops out of the listing
// and the candidate pool but its history stays
func deactivateInfluencerCard(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		card := srv.ownedInfluencerCard(c, c.Param("id"))
		if card == nil {
			return
		}

		card.Active = false
		card.Deleted = true
		card.UpdatedAt = time.Now().Unix()

		if err := srv.saveInfluencerCard(card); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(card.Id))
	}
}

func (srv *Server) saveInfluencerCard(card *common.InfluencerCard) error {
	return srv.db.Update(func(tx *bolt.Tx) error {
		return misc.PutTxJson(tx, srv.Cfg.Bucket.InfluencerCard, card.Id, card)
	})
}

// getInfluencerCards is the public listing; only approved, active cards
// show up
func getInfluencerCards(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var platforms []string
		if p := c.Query("platform"); p != "" {
			platforms = []string{strings.ToLower(p)}
		}
		misc.WriteJSON(c, 200, common.GetListableCards(srv.db, srv.Cfg, platforms))
	}
}

func getInfluencerCard(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		card := common.GetInfluencerCard(c.Param("id"), srv.db, srv.Cfg)
		if card == nil || !card.IsListable() {
			misc.AbortWithErr(c, 404, errCardNotFound)
			return
		}
		misc.WriteJSON(c, 200, card)
	}
}

func postAdvertiserCard(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var card common.AdvertiserCard
		if err := misc.BindJSON(c, &card); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		card.UserId = cu.ID
		card.Active = true
		card.Deleted = false
		card.Stats = common.AdvertiserStats{}

		if err := card.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		now := time.Now().Unix()
		card.CreatedAt, card.UpdatedAt = now, now

		if err := srv.db.Update(func(tx *bolt.Tx) (err error) {
			if card.Id, err = misc.GetNextIndex(tx, srv.Cfg.Bucket.AdvertiserCard); err != nil {
				return err
			}
			return misc.PutTxJson(tx, srv.Cfg.Bucket.AdvertiserCard, card.Id, &card)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(card.Id))
	}
}

func putAdvertiserCard(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var card common.AdvertiserCard
		if err := srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetTxJson(tx, srv.Cfg.Bucket.AdvertiserCard, c.Param("id"), &card)
		}); err != nil || card.Id == "" || card.Deleted {
			misc.AbortWithErr(c, 404, errCardNotFound)
			return
		}
		if card.UserId != cu.ID && !cu.IsAdmin() {
			misc.AbortWithErr(c, 401, errNotYours)
			return
		}

		var upd common.AdvertiserCard
		if err := misc.BindJSON(c, &upd); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		card.Title = upd.Title
		card.Description = upd.Description
		card.Brand = upd.Brand
		card.Budget = upd.Budget
		card.StartsAt = upd.StartsAt
		card.EndsAt = upd.EndsAt
		card.MinFollowers = upd.MinFollowers
		card.MinEngagement = upd.MinEngagement
		card.ContactEmail = upd.ContactEmail
		card.Active = upd.Active
		card.Deleted = upd.Deleted

		if err := card.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}
		card.UpdatedAt = time.Now().Unix()

		if err := srv.db.Update(func(tx *bolt.Tx) error {
			return misc.PutTxJson(tx, srv.Cfg.Bucket.AdvertiserCard, card.Id, &card)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(card.Id))
	}
}

func getAdvertiserCards(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cards := make([]*common.AdvertiserCard, 0, 64)
		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.AdvertiserCard).ForEach(func(k, v []byte) error {
				var card common.AdvertiserCard
				if misc.GetTxJson(tx, srv.Cfg.Bucket.AdvertiserCard, string(k), &card) != nil {
					return nil
				}
				if card.Active && !card.Deleted {
					cards = append(cards, &card)
				}
				return nil
			})
		})
		misc.WriteJSON(c, 200, cards)
	}
}

// getModerationQueue lists influencer cards still waiting for a decision
func getModerationQueue(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		queue := make([]*common.InfluencerCard, 0, 32)
		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.InfluencerCard).ForEach(func(k, v []byte) error {
				var card common.InfluencerCard
				if misc.GetTxJson(tx, srv.Cfg.Bucket.InfluencerCard, string(k), &card) != nil {
					return nil
				}
				if !card.Deleted && card.ModerationStatus == common.ModerationPending {
					queue = append(queue, &card)
				}
				return nil
			})
		})
		misc.WriteJSON(c, 200, queue)
	}
}

type moderationPayload struct {
	Decision string `json:"decision"` // approved or rejected
	Note     string `json:"note,omitempty"`
}

func putModeration(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		card := common.GetInfluencerCard(c.Param("id"), srv.db, srv.Cfg)
		if card == nil || card.Deleted {
			misc.AbortWithErr(c, 404, errCardNotFound)
			return
		}

		var payload moderationPayload
		if err := misc.BindJSON(c, &payload); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		switch payload.Decision {
		case common.ModerationApproved, common.ModerationRejected:
		default:
			misc.AbortWithErr(c, 400, errors.New("unknown decision"))
			return
		}

		card.ModerationStatus = payload.Decision
		card.ModerationNote = payload.Note
		card.UpdatedAt = time.Now().Unix()

		if err := srv.saveInfluencerCard(card); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		go srv.moderationNotify(card, payload.Decision, payload.Note)

		misc.WriteJSON(c, 200, misc.StatusOK(card.Id))
	}
}
