package match

import (
	"github.com/influo/influo/internal/common"
	"github.com/influo/influo/misc"
)

// Candidates narrows the card pool down to those eligible for a campaign.
// An empty result is a normal outcome, not an error.
func Candidates(cards []*common.InfluencerCard, cmp *common.Campaign) []*common.InfluencerCard {
	out := make([]*common.InfluencerCard, 0, len(cards))

	f := cmp.Filters
	for _, card := range cards {
		// The data layer pre-filters on listability, but candidates can
		// arrive from other callers too
		if !card.IsListable() {
			continue
		}

		if len(f.Platforms) > 0 && !common.IsInList(f.Platforms, card.Platform) {
			continue
		}

		// A zero bound means "no bound"
		if as := f.AudienceSize; as != nil {
			if as.Min > 0 && card.Followers < as.Min {
				continue
			}
			if as.Max > 0 && card.Followers > as.Max {
				continue
			}
		}

		// Empty contentTypes filter matches everything
		if !common.ContentTypesIntersect(f.ContentTypes, card.ContentTypes) {
			continue
		}

		if d := f.Demographics; d != nil && !demoMatch(d, &card.Audience) {
			continue
		}

		out = append(out, card)
	}

	return out
}

func demoMatch(d *common.DemoFilter, aud *common.AudienceDemographics) bool {
	// Gender check: campaigns targeting one gender want that gender to be
	// the majority of the card's audience
	switch d.Gender {
	case "m":
		if aud.MalePct > 0 && aud.MalePct < 50 {
			return false
		}
	case "f":
		if aud.FemalePct > 0 && aud.FemalePct < 50 {
			return false
		}
	}

	// Each requested age group must hold at least the requested share
	for group, minPct := range d.AgeGroups {
		if minPct <= 0 {
			continue
		}
		if aud.AgeGroups[group] < minPct {
			return false
		}
	}

	// Country overlap only applies when both sides declare countries; both
	// lists are lowercased on save so plain intersection works
	if len(d.Countries) > 0 && len(aud.Countries) > 0 && !misc.DoesIntersect(d.Countries, aud.Countries) {
		return false
	}

	return true
}
