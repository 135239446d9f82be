package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"

	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

var (
	errApplicationNotFound = errors.New("application not found")
	errAlreadyApplied      = errors.New("already applied")
)

// resolveTarget figures out who sits on the other side of an application
func (srv *Server) resolveTarget(app *common.Application) error {
	switch app.TargetType {
	case common.TargetCampaign:
		cmp := common.GetCampaign(app.ReferenceId, srv.db, srv.Cfg)
		if cmp == nil || !cmp.IsActive() {
			return errors.New("campaign not found or inactive")
		}
		app.TargetId = cmp.AdvertiserId
	case common.TargetAdvertiserCard:
		var card common.AdvertiserCard
		if err := srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetTxJson(tx, srv.Cfg.Bucket.AdvertiserCard, app.ReferenceId, &card)
		}); err != nil || card.Id == "" || card.Deleted || !card.Active {
			return errCardNotFound
		}
		app.TargetId = card.UserId
	case common.TargetInfluencerCard:
		card := common.GetInfluencerCard(app.ReferenceId, srv.db, srv.Cfg)
		if card == nil || !card.IsListable() {
			return errCardNotFound
		}
		app.TargetId = card.UserId
	default:
		return errors.New("unknown target type")
	}
	return nil
}

// postApplication files an application against a campaign or card. The
// duplicate check lives inside the same transaction as the write so two
// concurrent submissions can't both land.
func postApplication(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var app common.Application
		if err := misc.BindJSON(c, &app); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		app.ApplicantId = cu.ID
		app.Status = common.ApplicationSent
		app.SentAt = time.Now().Unix()
		app.Views = 0

		if err := srv.resolveTarget(&app); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}
		if err := app.Check(); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		if err := srv.db.Update(func(tx *bolt.Tx) (err error) {
			var dup bool
			misc.GetBucket(tx, srv.Cfg.Bucket.Application).ForEach(func(k, v []byte) error {
				var existing common.Application
				if json.Unmarshal(v, &existing) != nil {
					return nil
				}
				if existing.ApplicantId == app.ApplicantId &&
					existing.ReferenceId == app.ReferenceId &&
					existing.Status != common.ApplicationDeclined &&
					existing.Status != common.ApplicationCancelled {
					dup = true
				}
				return nil
			})
			if dup {
				return errAlreadyApplied
			}

			if app.Id, err = misc.GetNextIndex(tx, srv.Cfg.Bucket.Application); err != nil {
				return err
			}
			if err = misc.PutTxJson(tx, srv.Cfg.Bucket.Application, app.Id, &app); err != nil {
				return err
			}

			if app.TargetType == common.TargetCampaign {
				var cmp common.Campaign
				if misc.GetTxJson(tx, srv.Cfg.Bucket.Campaign, app.ReferenceId, &cmp) == nil {
					cmp.Metrics.Applications += 1
					if err := common.SaveCampaignTx(tx, srv.Cfg, &cmp); err != nil {
						return err
					}
					srv.Campaigns.SetCampaign(cmp.Id, &cmp)
				}
			}
			return nil
		}); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		misc.WriteJSON(c, 200, misc.StatusOK(app.Id))
	}
}

func getApplications(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		apps := make([]*common.Application, 0, 16)
		srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetBucket(tx, srv.Cfg.Bucket.Application).ForEach(func(k, v []byte) error {
				var app common.Application
				if json.Unmarshal(v, &app) != nil {
					return nil
				}
				if app.ApplicantId == cu.ID || app.TargetId == cu.ID || cu.IsAdmin() {
					apps = append(apps, &app)
				}
				return nil
			})
		})

		misc.WriteJSON(c, 200, apps)
	}
}

var applicantAppMoves = []string{common.ApplicationCancelled}
var targetAppMoves = []string{
	common.ApplicationAccepted, common.ApplicationDeclined,
	common.ApplicationInProgress, common.ApplicationCompleted,
}

func putApplicationResponse(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		var app common.Application
		if err := srv.db.View(func(tx *bolt.Tx) error {
			return misc.GetTxJson(tx, srv.Cfg.Bucket.Application, c.Param("id"), &app)
		}); err != nil || app.Id == "" {
			misc.AbortWithErr(c, 404, errApplicationNotFound)
			return
		}

		var payload struct {
			Status string `json:"status"`
		}
		if err := misc.BindJSON(c, &payload); err != nil {
			misc.AbortWithErr(c, 400, err)
			return
		}

		var allowed []string
		switch cu.ID {
		case app.ApplicantId:
			allowed = applicantAppMoves
		case app.TargetId:
			allowed = targetAppMoves
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
		if !app.CanTransition(payload.Status) {
			misc.AbortWithErr(c, 400, common.ErrBadStatus)
			return
		}

		now := time.Now().Unix()
		app.Status = payload.Status
		switch payload.Status {
		case common.ApplicationAccepted, common.ApplicationDeclined:
			app.RespondedAt = now
		case common.ApplicationCompleted:
			app.CompletedAt = now
		}

		if err := srv.db.Update(func(tx *bolt.Tx) error {
			return misc.PutTxJson(tx, srv.Cfg.Bucket.Application, app.Id, &app)
		}); err != nil {
			misc.AbortWithErr(c, 500, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(app.Id))
	}
}

// putApplicationView counts the target opening the application; the
// applicant looking at their own submission doesn't count
func putApplicationView(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		cu := auth.GetCtxUser(c)

		if err := srv.db.Update(func(tx *bolt.Tx) error {
			var app common.Application
			if misc.GetTxJson(tx, srv.Cfg.Bucket.Application, c.Param("id"), &app) != nil || app.Id == "" {
				return errApplicationNotFound
			}
			if app.TargetId != cu.ID {
				return nil
			}
			app.Views += 1
			return misc.PutTxJson(tx, srv.Cfg.Bucket.Application, app.Id, &app)
		}); err != nil {
			misc.AbortWithErr(c, 404, err)
			return
		}
		misc.WriteJSON(c, 200, misc.StatusOK(c.Param("id")))
	}
}
