package match

import (
	"testing"

	"github.com/influo/influo/internal/common"
)

func candidateIds(cards []*common.InfluencerCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.UserId)
	}
	return out
}

func TestCandidatesPlatform(t *testing.T) {
	cmp := testCampaign(2, 0, 10)
	cmp.Filters.Platforms = []string{"instagram"}

	tiktok := testCard("inf-tiktok", 1000, 100)
	tiktok.Platform = "tiktok"

	got := Candidates([]*common.InfluencerCard{testCard("inf-insta", 1000, 100), tiktok}, cmp)
	if len(got) != 1 || got[0].UserId != "inf-insta" {
		t.Fatalf("expected only the instagram card, got %v", candidateIds(got))
	}
}

func TestCandidatesAudienceSize(t *testing.T) {
	cmp := testCampaign(2, 0, 10)
	cmp.Filters.AudienceSize = &common.AudienceSize{Min: 1000, Max: 10000}

	got := Candidates([]*common.InfluencerCard{
		testCard("inf-small", 500, 100),
		testCard("inf-fit", 5000, 100),
		testCard("inf-big", 50000, 100),
	}, cmp)
	if len(got) != 1 || got[0].UserId != "inf-fit" {
		t.Fatalf("expected only inf-fit, got %v", candidateIds(got))
	}

	// A zero bound means unbounded on that side
	cmp.Filters.AudienceSize = &common.AudienceSize{Min: 1000}
	got = Candidates([]*common.InfluencerCard{
		testCard("inf-small", 500, 100),
		testCard("inf-big", 50000, 100),
	}, cmp)
	if len(got) != 1 || got[0].UserId != "inf-big" {
		t.Fatalf("expected only inf-big, got %v", candidateIds(got))
	}
}

func TestCandidatesContentTypeSynonyms(t *testing.T) {
	cmp := testCampaign(2, 0, 10)
	cmp.Filters.ContentTypes = []string{"stories"}

	ruCard := testCard("inf-ru", 1000, 100)
	ruCard.ContentTypes = []string{"сторис"}

	videoCard := testCard("inf-video", 1000, 100)
	videoCard.ContentTypes = []string{"video"}

	got := Candidates([]*common.InfluencerCard{ruCard, videoCard}, cmp)
	if len(got) != 1 || got[0].UserId != "inf-ru" {
		t.Fatalf("synonym lookup failed, got %v", candidateIds(got))
	}
}

func TestCandidatesUnlistableExcluded(t *testing.T) {
	cmp := testCampaign(2, 0, 10)

	inactive := testCard("inf-inactive", 1000, 100)
	inactive.Active = false
	pending := testCard("inf-pending", 1000, 100)
	pending.ModerationStatus = common.ModerationPending
	deleted := testCard("inf-deleted", 1000, 100)
	deleted.Deleted = true

	got := Candidates([]*common.InfluencerCard{inactive, pending, deleted, testCard("inf-ok", 1000, 100)}, cmp)
	if len(got) != 1 || got[0].UserId != "inf-ok" {
		t.Fatalf("expected only the listable card, got %v", candidateIds(got))
	}
}

func TestCandidatesDemographics(t *testing.T) {
	cmp := testCampaign(2, 0, 10)
	cmp.Filters.Demographics = &common.DemoFilter{
		Gender:    "f",
		AgeGroups: map[string]float64{"18-24": 30},
		Countries: []string{"us"},
	}

	fits := testCard("inf-fits", 1000, 100)
	fits.Audience = common.AudienceDemographics{
		FemalePct: 70,
		AgeGroups: map[string]float64{"18-24": 45},
		Countries: []string{"us", "ca"},
	}

	maleHeavy := testCard("inf-male", 1000, 100)
	maleHeavy.Audience = common.AudienceDemographics{
		FemalePct: 20,
		MalePct:   80,
		AgeGroups: map[string]float64{"18-24": 45},
		Countries: []string{"us"},
	}

	tooOld := testCard("inf-old", 1000, 100)
	tooOld.Audience = common.AudienceDemographics{
		FemalePct: 70,
		AgeGroups: map[string]float64{"18-24": 10},
		Countries: []string{"us"},
	}

	wrongGeo := testCard("inf-geo", 1000, 100)
	wrongGeo.Audience = common.AudienceDemographics{
		FemalePct: 70,
		AgeGroups: map[string]float64{"18-24": 45},
		Countries: []string{"de"},
	}

	// No declared countries: geo check is skipped rather than failed
	undeclared := testCard("inf-undeclared", 1000, 100)
	undeclared.Audience = common.AudienceDemographics{
		FemalePct: 70,
		AgeGroups: map[string]float64{"18-24": 45},
	}

	got := Candidates([]*common.InfluencerCard{fits, maleHeavy, tooOld, wrongGeo, undeclared}, cmp)
	ids := candidateIds(got)
	if len(ids) != 2 || ids[0] != "inf-fits" || ids[1] != "inf-undeclared" {
		t.Fatalf("expected [inf-fits inf-undeclared], got %v", ids)
	}
}

func TestCandidatesEmptyFiltersMatchEverything(t *testing.T) {
	cmp := testCampaign(2, 0, 10)
	cmp.Filters = common.Filters{}

	got := Candidates([]*common.InfluencerCard{
		testCard("inf-0", 1000, 100),
		testCard("inf-1", 0, 100),
	}, cmp)
	if len(got) != 2 {
		t.Fatalf("expected every listable card, got %v", candidateIds(got))
	}
}
