package match

import (
	"sort"

	"github.com/influo/influo/internal/common"
)

// Breakdown keeps the normalized (0-100) component values around so a run
// can be audited after the fact
type Breakdown struct {
	Followers    float64 `json:"followers"`
	Engagement   float64 `json:"engagement"`
	Rating       float64 `json:"rating"`
	ResponseTime float64 `json:"responseTime,omitempty"`
}

type Scored struct {
	Card      *common.InfluencerCard `json:"card"`
	Score     float64                `json:"score"`
	Breakdown Breakdown              `json:"breakdown"`
}

// Rank scores every candidate against the weight vector and returns the
// top `limit` in descending score order. Metrics are normalized against
// the max observed within this batch, so scores are only comparable
// inside one run. The sort is explicitly stable: tie order decides who
// gets an offer, so it must not depend on sort internals.
func Rank(cards []*common.InfluencerCard, w common.ScoringWeights, limit int) []*Scored {
	if len(cards) == 0 {
		return nil
	}

	var maxFollowers, maxViews int64
	var maxEng, maxRating float64
	var maxResponse int32
	for _, card := range cards {
		if card.Followers > maxFollowers {
			maxFollowers = card.Followers
		}
		if card.AvgViews > maxViews {
			maxViews = card.AvgViews
		}
		if card.EngagementRate > maxEng {
			maxEng = card.EngagementRate
		}
		if card.Rating > maxRating {
			maxRating = card.Rating
		}
		if card.ResponseTimeHours > maxResponse {
			maxResponse = card.ResponseTimeHours
		}
	}

	scored := make([]*Scored, 0, len(cards))
	for _, card := range cards {
		var bd Breakdown
		bd.Followers = norm(float64(card.Followers), float64(maxFollowers))
		bd.Engagement = norm(card.EngagementRate, maxEng)
		bd.Rating = norm(card.Rating, maxRating)
		// Faster responders score higher; with no declared response time
		// the component stays 0
		if maxResponse > 0 && card.ResponseTimeHours > 0 {
			bd.ResponseTime = 100 - norm(float64(card.ResponseTimeHours), float64(maxResponse))
		}

		score := (bd.Followers/100)*w.Followers +
			(bd.Engagement/100)*w.Engagement +
			(bd.Rating/100)*w.Rating +
			(bd.ResponseTime/100)*w.ResponseTime

		scored = append(scored, &Scored{Card: card, Score: score, Breakdown: bd})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && limit < len(scored) {
		scored = scored[:limit]
	}

	return scored
}

// norm maps a raw value into 0-100 relative to the batch max; a zero max
// normalizes everyone to 0 instead of dividing by it
func norm(val, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return (val / max) * 100
}
