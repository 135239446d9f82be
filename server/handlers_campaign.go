package server

import (
	"errors"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/internal/match"
	"github.com/influo/influo/misc"
)

var (
	errCampaignNotFound = errors.New("campaign not found")
	errNotYours         = errors.New("not your resource")
)

// ownedCampaign loads a campaign and verifies the caller owns it (admins
// own everything)
func (srv *Server) ownedCampaign(c *gin.Context, id string) *common.Campaign {
	cmp := common.GetCampaign(id, srv.db, srv.Cfg)
	if cmp == nil {
		misc.AbortWithErr(c, 404, errCampaignNotFound)
		return nil
	}
	cu := auth.GetCtxUser(c)
	if cmp.AdvertiserId != cu.ID && !cu.IsAdmin() {
		misc.AbortWithErr(c, 401, errNotYours)
		return nil
	}
	return cmp
}

func postCampaign(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var cmp common.Campaign
		if err := misc.BindJSON(c, &cmp); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		cmp.AdvertiserId = cu.ID
		cmp.Status = common.CampaignActive
		cmp.PausedReason = ""
		cmp.Metrics = common.CampaignMetrics{}

		if err := cmp.Check(srv.Cfg); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		now := time.Now().Unix()
		cmp.CreatedAt, cmp.UpdatedAt = now, now

		if err := srv.db.Update(func(tx *bolt.Tx) (err error) {
			if cmp.Id, err = misc.GetNextIndex(tx, srv.Cfg.Bucket.Campaign); err != nil {
				return err
			}
			return common.SaveCampaignTx(tx, srv.Cfg, &cmp)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		srv.Campaigns.SetCampaign(cmp.Id, &cmp)

		// Offer distribution kicks off in the background; progress is
		// available via the distribution endpoint
		if cmp.IsAutomatic() {
			srv.startDistribution(&cmp)
		}

		misc.WriteJSON(c, 200, misc.StatusOK(cmp.Id))
	}
}

func getCampaign(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmp := common.GetCampaign(c.Param("id"), srv.db, srv.Cfg)
		if cmp == nil {
			misc.AbortWithErr(c, 404, errCampaignNotFound)
			return
		}
		misc.WriteJSON(c, 200, cmp)
	}
}

func getCampaignsForAdvertiser(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		advId := c.Param("id")

		campaigns := make([]*common.Campaign, 0, 8)
		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.Campaign).ForEach(func(k, v []byte) error {
				var cmp common.Campaign
				if misc.GetTxJson(tx, srv.Cfg.Bucket.Campaign, string(k), &cmp) != nil {
					return nil
				}
				if cmp.AdvertiserId == advId && !cmp.Archived {
					campaigns = append(campaigns, &cmp)
				}
				return nil
			})
		})

		misc.WriteJSON(c, 200, campaigns)
	}
}

// putCampaign edits campaign content; status changes go through the status
// endpoint so pause/resume side effects always run
func putCampaign(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmp := srv.ownedCampaign(c, c.Param("id"))
		if cmp == nil {
			return
		}

		var upd common.Campaign
		if err := misc.BindJSON(c, &upd); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		cmp.Title = upd.Title
		cmp.Description = upd.Description
		cmp.Brand = upd.Brand
		cmp.Budget = upd.Budget
		cmp.Filters = upd.Filters
		cmp.Automatic = upd.Automatic
		cmp.Archived = upd.Archived

		if err := cmp.Check(srv.Cfg); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}
		cmp.UpdatedAt = time.Now().Unix()

		if err := srv.saveCampaign(cmp); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		if cmp.Archived {
			srv.Tracker.Cancel(cmp.Id)
		}

		misc.WriteJSON(c, 200, misc.StatusOK(cmp.Id))
	}
}

type statusPayload struct {
	Status string `json:"status"`
}

// putCampaignStatus pauses or resumes a campaign. Pausing cancels any
// in-flight distribution run before its next batch; resuming an automatic
// campaign that hasn't hit its target starts a fresh run.
func putCampaignStatus(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmp := srv.ownedCampaign(c, c.Param("id"))
		if cmp == nil {
			return
		}

		var payload statusPayload
		if err := misc.BindJSON(c, &payload); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		switch payload.Status {
		case common.CampaignPaused:
			cmp.Status = common.CampaignPaused
			cmp.PausedReason = common.PausedByAdvertiser
			srv.Tracker.Cancel(cmp.Id)
		case common.CampaignActive:
			cmp.Status = common.CampaignActive
			cmp.PausedReason = ""
			srv.Tracker.ClearCancel(cmp.Id)
		default:
			misc.AbortWithErr(c, 400, errors.New("unknown status"))
			return
		}

		cmp.UpdatedAt = time.Now().Unix()
		if err := srv.saveCampaign(cmp); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}

		if cmp.IsActive() && cmp.IsAutomatic() &&
			srv.Tracker.Accepted(cmp.Id) < cmp.Automatic.TargetInfluencerCount {
			srv.startDistribution(cmp)
		}

		misc.WriteJSON(c, 200, misc.StatusOK(cmp.Id))
	}
}

type distributionStatus struct {
	Campaign     string         `json:"campaign"`
	Target       int            `json:"target"`
	TotalToSend  int            `json:"totalToSend"`
	Tracking     match.Tracking `json:"tracking"`
	Cancelled    bool           `json:"cancelled,omitempty"`
	PausedReason string         `json:"pausedReason,omitempty"`
}

func getDistribution(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmp := srv.ownedCampaign(c, c.Param("id"))
		if cmp == nil {
			return
		}
		if !cmp.IsAutomatic() {
			misc.AbortWithErr(c, 400, match.ErrNoAutomatic)
			return
		}

		as := cmp.Automatic
		misc.WriteJSON(c, 200, &distributionStatus{
			Campaign:     cmp.Id,
			Target:       as.TargetInfluencerCount,
			TotalToSend:  match.TotalToSend(as.TargetInfluencerCount, as.OverbookingPercentage),
			Tracking:     srv.Tracker.Get(cmp.Id),
			Cancelled:    srv.Tracker.Cancelled(cmp.Id),
			PausedReason: cmp.PausedReason,
		})
	}
}
