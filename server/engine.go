package server

import (
	"time"
)

const campaignRefresh = 5 * time.Minute

// newEngine seeds the in-memory stores and kicks off the background loops
func newEngine(srv *Server) error {
	srv.Campaigns.Set(srv.db, srv.Cfg)

	go func() {
		for range time.Tick(campaignRefresh) {
			srv.Campaigns.Set(srv.db, srv.Cfg)
		}
	}()

	go srv.auth.PurgeInvalidTokens()

	return nil
}
