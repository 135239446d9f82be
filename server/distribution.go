package server

import (
	"log"
	"time"

	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/internal/match"
)

func (srv *Server) distributor() *match.Distributor {
	d := &match.Distributor{
		Store:   srv,
		Guard:   srv,
		Tracker: srv.Tracker,
	}
	if srv.Cfg.Sandbox {
		// Batch delays are minutes; sandbox compresses them so tests and
		// local runs don't stall
		d.Sleep = func(time.Duration) { time.Sleep(time.Millisecond) }
	}
	return d
}

// rankedPool builds the filtered, scored candidate list for a campaign
func (srv *Server) rankedPool(cmp *common.Campaign, limit int) []*match.Scored {
	cards := common.GetListableCards(srv.db, srv.Cfg, cmp.Filters.Platforms)
	pool := match.Candidates(cards, cmp)
	return match.Rank(pool, cmp.Automatic.Weights, limit)
}

// runDistribution executes the whole pipeline for an automatic campaign:
// filter, score, then batched offer dispatch
func (srv *Server) runDistribution(cmp *common.Campaign) *match.Result {
	as := cmp.Automatic
	total := match.TotalToSend(as.TargetInfluencerCount, as.OverbookingPercentage)

	srv.Tracker.ClearCancel(cmp.Id)
	ranked := srv.rankedPool(cmp, total)

	res := srv.distributor().Run(cmp, ranked)

	if len(res.Errors) > 0 {
		log.Println("Distribution for campaign", cmp.Id, "finished with", len(res.Errors), "errors")
	}

	// A campaign that never got a single offer out pauses so the
	// advertiser can fix the filters instead of silently re-running. A
	// resumed run finding everyone already offered is not that case.
	if !res.Success && len(srv.Tracker.Get(cmp.Id).SentOffers) == 0 {
		if fresh := common.GetCampaign(cmp.Id, srv.db, srv.Cfg); fresh != nil && fresh.IsActive() {
			fresh.Status = common.CampaignPaused
			fresh.PausedReason = common.PausedOnError
			fresh.UpdatedAt = time.Now().Unix()
			if err := srv.saveCampaign(fresh); err != nil {
				srv.Alert("Failed pausing campaign "+cmp.Id+" after empty distribution", err)
			}
		}
	}

	return res
}

func (srv *Server) startDistribution(cmp *common.Campaign) {
	go func() {
		res := srv.runDistribution(cmp)
		log.Println("Distribution done for campaign", cmp.Id,
			"offers:", res.OffersCreated, "budget:", res.TotalBudget)
	}()
}

// runReplacement fills the slot left by a dropout with the best unused
// candidate, bounded by the campaign's replacement cap
func (srv *Server) runReplacement(cmp *common.Campaign) {
	as := cmp.Automatic
	if as == nil || !as.AutoReplacement {
		return
	}
	if srv.Tracker.Replacements(cmp.Id) >= as.MaxReplacements {
		log.Println("Replacement cap reached for campaign", cmp.Id)
		return
	}

	ranked := srv.rankedPool(cmp, 0)
	res := srv.distributor().Replacement(cmp, ranked)
	if res.Success {
		srv.Tracker.MarkReplacement(cmp.Id)
	} else {
		log.Println("No replacement found for campaign", cmp.Id, res.Errors)
	}
}
