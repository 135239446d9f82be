package common

import (
	"strings"
	"testing"

	"github.com/influo/influo/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return cfg
}

func validCampaign() *Campaign {
	return &Campaign{
		AdvertiserId: "adv-1",
		Title:        "Spring launch",
		Budget:       BudgetRange{Min: 50, Max: 500},
		Status:       CampaignActive,
	}
}

func TestCampaignCheckAggregatesProblems(t *testing.T) {
	cmp := &Campaign{
		Budget: BudgetRange{Min: 100, Max: 50},
		Automatic: &AutomaticSettings{
			Enabled:               true,
			TargetInfluencerCount: 0,
			OverbookingPercentage: -1,
		},
	}

	err := cmp.Check(testConfig())
	if err == nil {
		t.Fatal("expected validation error")
	}
	// Every violation shows up in one message
	for _, want := range []string{
		"missing advertiser id",
		"missing title",
		"invalid budget range",
		"target influencer count",
		"overbooking percentage",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got %q", want, err)
		}
	}
}

func TestAutomaticSettingsDefaults(t *testing.T) {
	cfg := testConfig()
	as := &AutomaticSettings{
		Enabled:               true,
		TargetInfluencerCount: 5,
		Weights:               ScoringWeights{Followers: 100},
		AutoReplacement:       true,
	}
	if err := as.Check(cfg); err != nil {
		t.Fatal(err)
	}

	if as.OverbookingPercentage != cfg.Matching.OverbookingPercentage {
		t.Errorf("overbooking default not applied: %d", as.OverbookingPercentage)
	}
	if as.BatchSize != cfg.Matching.BatchSize {
		t.Errorf("batch size default not applied: %d", as.BatchSize)
	}
	if as.BatchDelay != cfg.Matching.BatchDelay {
		t.Errorf("batch delay default not applied: %d", as.BatchDelay)
	}
	if as.MaxReplacements != cfg.Matching.MaxReplacements {
		t.Errorf("max replacements default not applied: %d", as.MaxReplacements)
	}
}

func TestAutomaticSettingsDisabledSkipsValidation(t *testing.T) {
	as := &AutomaticSettings{Enabled: false}
	if err := as.Check(testConfig()); err != nil {
		t.Fatalf("disabled settings should pass untouched, got %v", err)
	}
}

func TestAutomaticSettingsNeedsWeights(t *testing.T) {
	as := &AutomaticSettings{Enabled: true, TargetInfluencerCount: 3}
	err := as.Check(testConfig())
	if err == nil || !strings.Contains(err.Error(), "at least one scoring weight") {
		t.Fatalf("expected weight error, got %v", err)
	}
}

func TestCampaignCheckCanonicalizes(t *testing.T) {
	cmp := validCampaign()
	cmp.Filters = Filters{
		Platforms:    []string{"Instagram", "TIKTOK"},
		ContentTypes: []string{"Stories", "сторис", "reel"},
	}
	if err := cmp.Check(testConfig()); err != nil {
		t.Fatal(err)
	}

	if cmp.Filters.Platforms[0] != "instagram" || cmp.Filters.Platforms[1] != "tiktok" {
		t.Errorf("platforms not lowercased: %v", cmp.Filters.Platforms)
	}
	if len(cmp.Filters.ContentTypes) != 2 {
		t.Errorf("content type synonyms not folded: %v", cmp.Filters.ContentTypes)
	}
}

func TestCampaignIsActive(t *testing.T) {
	cmp := validCampaign()
	if !cmp.IsActive() {
		t.Fatal("active campaign reported inactive")
	}
	cmp.Status = CampaignPaused
	if cmp.IsActive() {
		t.Fatal("paused campaign reported active")
	}
	cmp.Status = CampaignActive
	cmp.Archived = true
	if cmp.IsActive() {
		t.Fatal("archived campaign reported active")
	}
}
