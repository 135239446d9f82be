package server

import (
	"log"

	"github.com/boltdb/bolt"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go"

	"github.com/influo/influo/config"
	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/internal/match"
	"github.com/influo/influo/misc"
)

type Server struct {
	Cfg *config.Config

	db   *bolt.DB
	auth *auth.Auth
	r    *gin.Engine

	Campaigns *common.Campaigns
	Tracker   *match.Tracker
	Limiter   *common.LimitSet
}

func New(cfg *config.Config, r *gin.Engine) (*Server, error) {
	db := misc.OpenDB(cfg.DBPath, cfg.DBName)
	if err := misc.CreateBuckets(db, cfg.AllBuckets()); err != nil {
		return nil, err
	}

	srv := &Server{
		Cfg:       cfg,
		db:        db,
		r:         r,
		auth:      auth.New(db, cfg),
		Campaigns: common.NewCampaigns(),
		Tracker:   match.NewTracker(db, cfg),
		Limiter:   common.NewLimitSet(cfg.Matching.RateLimitHours),
	}

	if cfg.Stripe.Key != "" {
		stripe.Key = cfg.Stripe.Key
	}

	srv.initializeRoutes(r)

	if err := newEngine(srv); err != nil {
		return nil, err
	}

	return srv, nil
}

func (srv *Server) initializeRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// Open endpoints
	api.POST("/signUp", signUp(srv))
	api.POST("/signIn", signIn(srv))
	api.GET("/influencerCards", getInfluencerCards(srv))
	api.GET("/influencerCard/:id", getInfluencerCard(srv))
	api.GET("/advertiserCards", getAdvertiserCards(srv))

	// Anything below requires a session
	sec := api.Group("", srv.auth.VerifyUser())

	sec.POST("/signOut", signOut(srv))
	sec.GET("/user/:id", getUser(srv))
	sec.PUT("/user", putUser(srv))

	// Advertiser side
	adv := sec.Group("", srv.auth.CheckScope(auth.AdvertiserScope))
	adv.POST("/campaign", postCampaign(srv))
	adv.PUT("/campaign/:id", putCampaign(srv))
	adv.PUT("/campaign/:id/status", putCampaignStatus(srv))
	adv.GET("/campaign/:id/distribution", getDistribution(srv))
	adv.POST("/advertiserCard", postAdvertiserCard(srv))
	adv.PUT("/advertiserCard/:id", putAdvertiserCard(srv))
	adv.POST("/offer", postOffer(srv))
	adv.GET("/analytics/advertiser", getAdvertiserAnalytics(srv))

	sec.GET("/campaign/:id", getCampaign(srv))
	sec.GET("/campaigns/advertiser/:id", getCampaignsForAdvertiser(srv))

	// Influencer side
	inf := sec.Group("", srv.auth.CheckScope(auth.InfluencerScope))
	inf.POST("/influencerCard", postInfluencerCard(srv))
	inf.PUT("/influencerCard/:id", putInfluencerCard(srv))
	inf.PUT("/influencerCard/:id/deactivate", deactivateInfluencerCard(srv))
	inf.GET("/analytics/influencer", getInfluencerAnalytics(srv))

	// Shared
	sec.GET("/offers", getOffers(srv))
	sec.PUT("/offer/:id/response", putOfferResponse(srv))
	sec.POST("/application", postApplication(srv))
	sec.GET("/applications", getApplications(srv))
	sec.PUT("/application/:id/response", putApplicationResponse(srv))
	sec.PUT("/application/:id/view", putApplicationView(srv))
	sec.POST("/favorite", postFavorite(srv))
	sec.DELETE("/favorite", delFavorite(srv))
	sec.GET("/favorites", getFavorites(srv))
	sec.POST("/payment", postPaymentWindow(srv))
	sec.PUT("/payment/:id", putPaymentWindow(srv))
	sec.PUT("/payment/:id/status", putPaymentStatus(srv))
	sec.GET("/payments", getPaymentWindows(srv))
	sec.POST("/chat/:offerId", postChatMessage(srv))
	sec.GET("/chat/:offerId", getChatMessages(srv))
	sec.POST("/blacklist", postBlacklist(srv))
	sec.DELETE("/blacklist/:id", delBlacklist(srv))

	// Moderation
	admin := sec.Group("", srv.auth.CheckScope(auth.AdminScope))
	admin.GET("/moderation/queue", getModerationQueue(srv))
	admin.PUT("/moderation/:id", putModeration(srv))
}

func (srv *Server) Run() error {
	return srv.r.Run(srv.Cfg.Host + ":" + srv.Cfg.Port)
}

func (srv *Server) Close() error {
	return srv.db.Close()
}

// Alert logs an operator-facing failure and emails ops when mail is
// configured
func (srv *Server) Alert(msg string, err error) {
	log.Println("ALERT:", msg, err)

	if ec := srv.Cfg.MailClient(); ec != nil && srv.Cfg.OpsEmail != "" {
		body := msg
		if err != nil {
			body += ": " + err.Error()
		}
		if _, mailErr := ec.SendMessage(body, "Influo Alert", srv.Cfg.OpsEmail, "Ops", []string{"alert"}); mailErr != nil {
			log.Println("Failed to send alert email", mailErr)
		}
	}
}
