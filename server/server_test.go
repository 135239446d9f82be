package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/influo/influo/config"
	"github.com/influo/influo/internal/auth"
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DBPath:  t.TempDir() + "/",
		DBName:  "test",
		Sandbox: true,
	}
	cfg.SetDefaults()

	r := gin.New()
	srv, err := New(cfg, r)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func doReq(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set(auth.TokenHeader, token)
	}

	w := httptest.NewRecorder()
	srv.r.ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) *misc.Status {
	t.Helper()
	var st misc.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("bad status body %q: %v", w.Body.String(), err)
	}
	return &st
}

// newTestUser signs a user up through the API and returns (id, token)
func newTestUser(t *testing.T, srv *Server, email, scope string) (string, string) {
	t.Helper()

	w := doReq(t, srv, "POST", "/api/v1/signUp", "", gin.H{
		"name":     "Test " + scope,
		"email":    email,
		"scope":    scope,
		"password": "hunter22hunter22",
	})
	if w.Code != 200 {
		t.Fatalf("signUp %s: %d %s", email, w.Code, w.Body.String())
	}
	id := decodeStatus(t, w).Id

	w = doReq(t, srv, "POST", "/api/v1/signIn", "", gin.H{
		"email":    email,
		"password": "hunter22hunter22",
	})
	if w.Code != 200 {
		t.Fatalf("signIn %s: %d %s", email, w.Code, w.Body.String())
	}
	return id, w.Header().Get(auth.TokenHeader)
}

// newTestAdmin creates an admin out of band (the public API refuses the
// scope) and signs them in
func newTestAdmin(t *testing.T, srv *Server) string {
	t.Helper()

	u := &auth.User{Name: "Admin", Email: "admin@influo.test", Scope: auth.AdminScope}
	if err := srv.auth.SignUp(u, "hunter22hunter22"); err != nil {
		t.Fatal(err)
	}

	w := doReq(t, srv, "POST", "/api/v1/signIn", "", gin.H{
		"email":    "admin@influo.test",
		"password": "hunter22hunter22",
	})
	if w.Code != 200 {
		t.Fatalf("admin signIn: %d %s", w.Code, w.Body.String())
	}
	return w.Header().Get(auth.TokenHeader)
}

// newApprovedCard posts an influencer card and approves it as admin
func newApprovedCard(t *testing.T, srv *Server, infToken, adminToken string, followers int64, price float64) string {
	t.Helper()

	w := doReq(t, srv, "POST", "/api/v1/influencerCard", infToken, gin.H{
		"platform":       "instagram",
		"followers":      followers,
		"engagementRate": 3.5,
		"contentTypes":   []string{"post"},
		"pricing":        map[string]float64{"post": price},
	})
	if w.Code != 200 {
		t.Fatalf("postInfluencerCard: %d %s", w.Code, w.Body.String())
	}
	cardId := decodeStatus(t, w).Id

	w = doReq(t, srv, "PUT", "/api/v1/moderation/"+cardId, adminToken, gin.H{"decision": "approved"})
	if w.Code != 200 {
		t.Fatalf("putModeration: %d %s", w.Code, w.Body.String())
	}
	return cardId
}

func getOffersFor(t *testing.T, srv *Server, token, campaignId string) []*common.Offer {
	t.Helper()
	path := "/api/v1/offers"
	if campaignId != "" {
		path += "?campaign=" + campaignId
	}
	w := doReq(t, srv, "GET", path, token, nil)
	if w.Code != 200 {
		t.Fatalf("getOffers: %d %s", w.Code, w.Body.String())
	}
	var offers []*common.Offer
	if err := json.Unmarshal(w.Body.Bytes(), &offers); err != nil {
		t.Fatal(err)
	}
	return offers
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	if w := doReq(t, srv, "GET", "/api/v1/offers", "", nil); w.Code != 401 {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	if w := doReq(t, srv, "POST", "/api/v1/signUp", "", gin.H{
		"email": "admin2@influo.test", "scope": "admin", "password": "hunter22hunter22",
	}); w.Code != 400 {
		t.Fatalf("admin signUp should be refused, got %d", w.Code)
	}

	_, token := newTestUser(t, srv, "inf@influo.test", auth.InfluencerScope)

	if w := doReq(t, srv, "POST", "/api/v1/signIn", "", gin.H{
		"email": "inf@influo.test", "password": "wrong-password",
	}); w.Code != 401 {
		t.Fatalf("bad password should 401, got %d", w.Code)
	}

	// Influencers can't touch advertiser endpoints
	if w := doReq(t, srv, "POST", "/api/v1/campaign", token, gin.H{}); w.Code != 401 {
		t.Fatalf("scope check failed, got %d", w.Code)
	}

	if w := doReq(t, srv, "POST", "/api/v1/signOut", token, nil); w.Code != 200 {
		t.Fatalf("signOut: %d", w.Code)
	}
	if w := doReq(t, srv, "GET", "/api/v1/offers", token, nil); w.Code != 401 {
		t.Fatalf("token should be dead after signOut, got %d", w.Code)
	}
}

func TestAutomaticCampaignFlow(t *testing.T) {
	srv := newTestServer(t)
	adminToken := newTestAdmin(t, srv)
	_, advToken := newTestUser(t, srv, "adv@influo.test", auth.AdvertiserScope)

	type inf struct {
		id, token string
	}
	infs := make([]inf, 0, 4)
	for i := 0; i < 4; i++ {
		id, token := newTestUser(t, srv, fmt.Sprintf("inf%d@influo.test", i), auth.InfluencerScope)
		newApprovedCard(t, srv, token, adminToken, int64(1000*(i+1)), 100)
		infs = append(infs, inf{id, token})
	}

	// Target 2 with 50% overbooking: 3 offers should go out
	w := doReq(t, srv, "POST", "/api/v1/campaign", advToken, gin.H{
		"title":  "Spring launch",
		"brand":  "Acme",
		"budget": gin.H{"min": 50, "max": 500},
		"filters": gin.H{
			"platforms":    []string{"instagram"},
			"contentTypes": []string{"post"},
		},
		"automaticSettings": gin.H{
			"enabled":               true,
			"targetInfluencerCount": 2,
			"overbookingPercentage": 50,
			"batchSize":             10,
			"scoringWeights":        gin.H{"followers": 100},
		},
	})
	if w.Code != 200 {
		t.Fatalf("postCampaign: %d %s", w.Code, w.Body.String())
	}
	cmpId := decodeStatus(t, w).Id

	// Distribution runs in the background; sandbox compresses the delays
	var offers []*common.Offer
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		offers = getOffersFor(t, srv, advToken, cmpId)
		if len(offers) >= 3 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}

	offered := make(map[string]bool, len(offers))
	for _, o := range offers {
		if o.Status != common.OfferPending || !o.Automatic {
			t.Fatalf("expected pending automatic offer, got %+v", o)
		}
		if o.Details.Price < 50 || o.Details.Price > 500 {
			t.Fatalf("offer price %v outside budget", o.Details.Price)
		}
		offered[o.InfluencerId] = true
	}
	// Lowest-follower influencer sits below the cut
	if offered[infs[0].id] {
		t.Fatal("lowest-ranked influencer should not have been offered")
	}

	// Two acceptances hit the target; the leftover pending offer must be
	// withdrawn and the campaign paused
	accepted := 0
	for _, in := range infs {
		if accepted == 2 {
			break
		}
		for _, o := range getOffersFor(t, srv, in.token, cmpId) {
			if o.InfluencerId != in.id || o.Status != common.OfferPending {
				continue
			}
			w := doReq(t, srv, "PUT", "/api/v1/offer/"+o.Id+"/response", in.token, gin.H{"status": "accepted"})
			if w.Code != 200 {
				t.Fatalf("accept offer: %d %s", w.Code, w.Body.String())
			}
			accepted += 1
		}
	}
	if accepted != 2 {
		t.Fatalf("expected 2 acceptances, got %d", accepted)
	}

	var withdrawn, stillPending int
	for _, o := range getOffersFor(t, srv, advToken, cmpId) {
		switch o.Status {
		case common.OfferWithdrawn:
			withdrawn += 1
		case common.OfferPending:
			stillPending += 1
		}
	}
	if withdrawn != 1 || stillPending != 0 {
		t.Fatalf("expected 1 withdrawn and 0 pending, got %d/%d", withdrawn, stillPending)
	}

	w = doReq(t, srv, "GET", "/api/v1/campaign/"+cmpId, advToken, nil)
	var cmp common.Campaign
	if err := json.Unmarshal(w.Body.Bytes(), &cmp); err != nil {
		t.Fatal(err)
	}
	if cmp.Status != common.CampaignPaused || cmp.PausedReason != common.PausedTargetReached {
		t.Fatalf("expected paused/target_reached, got %s/%s", cmp.Status, cmp.PausedReason)
	}
	if cmp.Metrics.OffersSent != 3 || cmp.Metrics.OffersAccepted != 2 {
		t.Fatalf("metrics off: %+v", cmp.Metrics)
	}

	w = doReq(t, srv, "GET", "/api/v1/campaign/"+cmpId+"/distribution", advToken, nil)
	if w.Code != 200 {
		t.Fatalf("getDistribution: %d %s", w.Code, w.Body.String())
	}
	var dist distributionStatus
	if err := json.Unmarshal(w.Body.Bytes(), &dist); err != nil {
		t.Fatal(err)
	}
	if dist.Target != 2 || dist.TotalToSend != 3 || dist.Tracking.AcceptedCount != 2 {
		t.Fatalf("distribution status off: %+v", dist)
	}
}

func TestOfferDeclineAndDropout(t *testing.T) {
	srv := newTestServer(t)
	adminToken := newTestAdmin(t, srv)
	_, advToken := newTestUser(t, srv, "adv@influo.test", auth.AdvertiserScope)

	type inf struct {
		id, token string
	}
	infs := make([]inf, 0, 4)
	for i := 0; i < 4; i++ {
		id, token := newTestUser(t, srv, fmt.Sprintf("inf%d@influo.test", i), auth.InfluencerScope)
		newApprovedCard(t, srv, token, adminToken, int64(1000*(i+1)), 100)
		infs = append(infs, inf{id, token})
	}

	// 1% overbooking rounds up to one extra: 3 offers, to the top 3 by
	// followers, leaving infs[0] as the replacement reserve
	w := doReq(t, srv, "POST", "/api/v1/campaign", advToken, gin.H{
		"title":  "Autumn launch",
		"budget": gin.H{"min": 50, "max": 500},
		"filters": gin.H{
			"platforms":    []string{"instagram"},
			"contentTypes": []string{"post"},
		},
		"automaticSettings": gin.H{
			"enabled":               true,
			"targetInfluencerCount": 2,
			"overbookingPercentage": 1,
			"batchSize":             10,
			"scoringWeights":        gin.H{"followers": 100},
			"autoReplacement":       true,
			"maxReplacements":       3,
		},
	})
	if w.Code != 200 {
		t.Fatalf("postCampaign: %d %s", w.Code, w.Body.String())
	}
	cmpId := decodeStatus(t, w).Id

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && len(getOffersFor(t, srv, advToken, cmpId)) < 3 {
		time.Sleep(20 * time.Millisecond)
	}
	if n := len(getOffersFor(t, srv, advToken, cmpId)); n != 3 {
		t.Fatalf("expected 3 offers, got %d", n)
	}

	respond := func(in inf, status string) {
		t.Helper()
		for _, o := range getOffersFor(t, srv, in.token, cmpId) {
			if o.InfluencerId != in.id {
				continue
			}
			w := doReq(t, srv, "PUT", "/api/v1/offer/"+o.Id+"/response", in.token, gin.H{"status": status})
			if w.Code != 200 {
				t.Fatalf("%s offer: %d %s", status, w.Code, w.Body.String())
			}
			return
		}
		t.Fatalf("no offer found for %s", in.id)
	}

	// Declining a pending offer is covered by overbooking: no replacement
	// offer, no replacement budget spent
	respond(infs[1], "declined")
	time.Sleep(100 * time.Millisecond)
	if n := len(getOffersFor(t, srv, advToken, cmpId)); n != 3 {
		t.Fatalf("decline must not spawn a replacement, got %d offers", n)
	}
	if r := srv.Tracker.Replacements(cmpId); r != 0 {
		t.Fatalf("decline must not consume the replacement budget, got %d", r)
	}

	// Backing out after acceptance is a dropout and does get replaced
	respond(infs[2], "accepted")
	respond(infs[2], "withdrawn")

	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && len(getOffersFor(t, srv, advToken, cmpId)) < 4 {
		time.Sleep(20 * time.Millisecond)
	}
	offers := getOffersFor(t, srv, advToken, cmpId)
	if len(offers) != 4 {
		t.Fatalf("expected a replacement offer after dropout, got %d offers", len(offers))
	}
	var replaced bool
	for _, o := range offers {
		if o.InfluencerId == infs[0].id && o.Status == common.OfferPending {
			replaced = true
		}
	}
	if !replaced {
		t.Fatal("replacement should go to the best unused candidate")
	}
	if r := srv.Tracker.Replacements(cmpId); r != 1 {
		t.Fatalf("expected 1 replacement used, got %d", r)
	}
	if a := srv.Tracker.Accepted(cmpId); a != 0 {
		t.Fatalf("dropout should roll the accepted count back, got %d", a)
	}
}

func TestResumeAfterFullDispatch(t *testing.T) {
	srv := newTestServer(t)
	adminToken := newTestAdmin(t, srv)
	_, advToken := newTestUser(t, srv, "adv@influo.test", auth.AdvertiserScope)
	_, infToken := newTestUser(t, srv, "inf@influo.test", auth.InfluencerScope)
	newApprovedCard(t, srv, infToken, adminToken, 1000, 100)

	w := doReq(t, srv, "POST", "/api/v1/campaign", advToken, gin.H{
		"title":  "Tiny campaign",
		"budget": gin.H{"min": 50, "max": 500},
		"automaticSettings": gin.H{
			"enabled":               true,
			"targetInfluencerCount": 1,
			"overbookingPercentage": 1,
			"batchSize":             10,
			"scoringWeights":        gin.H{"followers": 100},
		},
	})
	if w.Code != 200 {
		t.Fatalf("postCampaign: %d %s", w.Code, w.Body.String())
	}
	cmpId := decodeStatus(t, w).Id

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && len(getOffersFor(t, srv, advToken, cmpId)) < 1 {
		time.Sleep(20 * time.Millisecond)
	}
	if n := len(getOffersFor(t, srv, advToken, cmpId)); n != 1 {
		t.Fatalf("expected 1 offer, got %d", n)
	}

	if w := doReq(t, srv, "PUT", "/api/v1/campaign/"+cmpId+"/status", advToken, gin.H{"status": "paused"}); w.Code != 200 {
		t.Fatalf("pause: %d %s", w.Code, w.Body.String())
	}
	if w := doReq(t, srv, "PUT", "/api/v1/campaign/"+cmpId+"/status", advToken, gin.H{"status": "active"}); w.Code != 200 {
		t.Fatalf("resume: %d %s", w.Code, w.Body.String())
	}

	// The resumed run finds its one candidate already offered. That's not
	// an empty campaign; it must stay active instead of pausing on error.
	time.Sleep(300 * time.Millisecond)

	w = doReq(t, srv, "GET", "/api/v1/campaign/"+cmpId, advToken, nil)
	var cmp common.Campaign
	if err := json.Unmarshal(w.Body.Bytes(), &cmp); err != nil {
		t.Fatal(err)
	}
	if cmp.Status != common.CampaignActive || cmp.PausedReason != "" {
		t.Fatalf("expected active campaign after resume, got %s/%s", cmp.Status, cmp.PausedReason)
	}
	if n := len(getOffersFor(t, srv, advToken, cmpId)); n != 1 {
		t.Fatalf("resume must not re-offer, got %d offers", n)
	}
}

func TestManualOfferRateLimit(t *testing.T) {
	srv := newTestServer(t)
	_, advToken := newTestUser(t, srv, "adv@influo.test", auth.AdvertiserScope)
	infId, _ := newTestUser(t, srv, "inf@influo.test", auth.InfluencerScope)

	payload := gin.H{
		"influencerId": infId,
		"details":      gin.H{"price": 100, "contentType": "post"},
	}

	if w := doReq(t, srv, "POST", "/api/v1/offer", advToken, payload); w.Code != 200 {
		t.Fatalf("first offer: %d %s", w.Code, w.Body.String())
	}
	// Same pair inside the rolling window gets bounced
	if w := doReq(t, srv, "POST", "/api/v1/offer", advToken, payload); w.Code != 429 {
		t.Fatalf("second offer should be rate limited, got %d %s", w.Code, w.Body.String())
	}
}

func TestApplicationDuplicate(t *testing.T) {
	srv := newTestServer(t)
	_, advToken := newTestUser(t, srv, "adv@influo.test", auth.AdvertiserScope)
	_, infToken := newTestUser(t, srv, "inf@influo.test", auth.InfluencerScope)

	w := doReq(t, srv, "POST", "/api/v1/campaign", advToken, gin.H{
		"title":  "Manual campaign",
		"budget": gin.H{"min": 50, "max": 500},
	})
	if w.Code != 200 {
		t.Fatalf("postCampaign: %d %s", w.Code, w.Body.String())
	}
	cmpId := decodeStatus(t, w).Id

	payload := gin.H{
		"targetType":  common.TargetCampaign,
		"referenceId": cmpId,
		"data":        gin.H{"message": "pick me", "rate": 120},
	}
	if w := doReq(t, srv, "POST", "/api/v1/application", infToken, payload); w.Code != 200 {
		t.Fatalf("first application: %d %s", w.Code, w.Body.String())
	}
	w = doReq(t, srv, "POST", "/api/v1/application", infToken, payload)
	if w.Code != 400 {
		t.Fatalf("duplicate application should 400, got %d %s", w.Code, w.Body.String())
	}
	if st := decodeStatus(t, w); st.Msg != errAlreadyApplied.Error() {
		t.Fatalf("expected %q, got %q", errAlreadyApplied, st.Msg)
	}
}

func TestFavoriteDuplicate(t *testing.T) {
	srv := newTestServer(t)
	adminToken := newTestAdmin(t, srv)
	_, advToken := newTestUser(t, srv, "adv@influo.test", auth.AdvertiserScope)
	_, infToken := newTestUser(t, srv, "inf@influo.test", auth.InfluencerScope)

	cardId := newApprovedCard(t, srv, infToken, adminToken, 1000, 100)

	payload := gin.H{"targetType": common.TargetInfluencerCard, "targetId": cardId}
	if w := doReq(t, srv, "POST", "/api/v1/favorite", advToken, payload); w.Code != 200 {
		t.Fatalf("first favorite: %d %s", w.Code, w.Body.String())
	}
	if w := doReq(t, srv, "POST", "/api/v1/favorite", advToken, payload); w.Code != 400 {
		t.Fatalf("duplicate favorite should 400, got %d", w.Code)
	}

	if w := doReq(t, srv, "DELETE", "/api/v1/favorite", advToken, payload); w.Code != 200 {
		t.Fatalf("delete favorite: %d %s", w.Code, w.Body.String())
	}
	// Gone now, so re-adding works again
	if w := doReq(t, srv, "POST", "/api/v1/favorite", advToken, payload); w.Code != 200 {
		t.Fatalf("re-add favorite: %d %s", w.Code, w.Body.String())
	}
}

func TestPauseCancelsDistribution(t *testing.T) {
	srv := newTestServer(t)
	_, advToken := newTestUser(t, srv, "adv@influo.test", auth.AdvertiserScope)

	w := doReq(t, srv, "POST", "/api/v1/campaign", advToken, gin.H{
		"title":  "Paused campaign",
		"budget": gin.H{"min": 50, "max": 500},
	})
	cmpId := decodeStatus(t, w).Id

	if w := doReq(t, srv, "PUT", "/api/v1/campaign/"+cmpId+"/status", advToken, gin.H{"status": "paused"}); w.Code != 200 {
		t.Fatalf("pause: %d %s", w.Code, w.Body.String())
	}
	if !srv.Tracker.Cancelled(cmpId) {
		t.Fatal("pause should flag the distribution run for cancellation")
	}

	w = doReq(t, srv, "GET", "/api/v1/campaign/"+cmpId, advToken, nil)
	var cmp common.Campaign
	if err := json.Unmarshal(w.Body.Bytes(), &cmp); err != nil {
		t.Fatal(err)
	}
	if cmp.Status != common.CampaignPaused || cmp.PausedReason != common.PausedByAdvertiser {
		t.Fatalf("expected paused by advertiser, got %s/%s", cmp.Status, cmp.PausedReason)
	}

	if w := doReq(t, srv, "PUT", "/api/v1/campaign/"+cmpId+"/status", advToken, gin.H{"status": "active"}); w.Code != 200 {
		t.Fatalf("resume: %d %s", w.Code, w.Body.String())
	}
	if srv.Tracker.Cancelled(cmpId) {
		t.Fatal("resume should clear the cancel flag")
	}
}
