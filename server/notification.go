package server

import (
	"log"

	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/internal/templates"
	"github.com/influo/influo/misc"
)

// offerNotify emails the influencer about a fresh offer. Called in its own
// goroutine; failures are logged, never surfaced to the request.
func (srv *Server) offerNotify(o *common.Offer) {
	ec := srv.Cfg.MailClient()
	if ec == nil {
		return
	}

	inf := srv.auth.GetUser(o.InfluencerId)
	if inf == nil || !inf.OfferPing {
		return
	}

	brand := ""
	title := ""
	if o.CampaignId != "" {
		if cmp, ok := srv.Campaigns.Get(o.CampaignId); ok {
			brand = cmp.Brand
			title = cmp.Title
		}
	}

	email := templates.OfferEmail.Render(map[string]interface{}{
		"Name":          inf.Name,
		"Brand":         brand,
		"CampaignTitle": title,
		"ContentType":   o.Details.ContentType,
		"Price":         misc.TruncateFloat(o.Details.Price, 2),
		"DashURL":       srv.Cfg.DashURL,
	})

	if _, err := ec.SendMessage(email, "You have a new collaboration offer!", inf.Email, inf.Name, []string{"offer"}); err != nil {
		log.Println("Failed to send offer email to", inf.Email, err)
	}
}

func (srv *Server) moderationNotify(card *common.InfluencerCard, decision, note string) {
	ec := srv.Cfg.MailClient()
	if ec == nil {
		return
	}

	inf := srv.auth.GetUser(card.UserId)
	if inf == nil {
		return
	}

	email := templates.ModerationEmail.Render(map[string]interface{}{
		"Name":     inf.Name,
		"Platform": card.Platform,
		"Decision": decision,
		"Note":     note,
	})

	if _, err := ec.SendMessage(email, "Your influencer card was reviewed", inf.Email, inf.Name, []string{"moderation"}); err != nil {
		log.Println("Failed to send moderation email to", inf.Email, err)
	}
}

func (srv *Server) targetReachedNotify(cmp *common.Campaign, totalBudget float64) {
	ec := srv.Cfg.MailClient()
	if ec == nil {
		return
	}

	adv := srv.auth.GetUser(cmp.AdvertiserId)
	if adv == nil {
		return
	}

	email := templates.TargetReachedEmail.Render(map[string]interface{}{
		"Name":          adv.Name,
		"CampaignTitle": cmp.Title,
		"Target":        cmp.Automatic.TargetInfluencerCount,
		"TotalBudget":   misc.TruncateFloat(totalBudget, 2),
	})

	if _, err := ec.SendMessage(email, "Your campaign hit its influencer target", adv.Email, adv.Name, []string{"campaign"}); err != nil {
		log.Println("Failed to send target reached email to", adv.Email, err)
	}
}
