package common

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/boltdb/bolt"

	"github.com/influo/influo/config"
	"github.com/influo/influo/misc"
)

const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// AudienceDemographics is self-reported by the influencer and checked by
// moderation; percentages are 0-100 shares of the audience
type AudienceDemographics struct {
	AgeGroups map[string]float64 `json:"ageGroups,omitempty"` // e.g. "18-24" -> 42.5
	MalePct   float64            `json:"malePct,omitempty"`
	FemalePct float64            `json:"femalePct,omitempty"`
	Countries []string           `json:"countries,omitempty"`
	Interests []string           `json:"interests,omitempty"`
}

type InfluencerCard struct {
	Id     string `json:"id"`
	UserId string `json:"userId"`

	Platform string `json:"platform"`
	Handle   string `json:"handle,omitempty"`

	Followers      int64   `json:"followers"`
	EngagementRate float64 `json:"engagementRate"` // percent
	AvgViews       int64   `json:"avgViews,omitempty"`

	Audience AudienceDemographics `json:"audience"`

	// Priced content types, keyed by canonical content key
	ContentTypes []string           `json:"contentTypes,omitempty"`
	Pricing      map[string]float64 `json:"pricing,omitempty"`

	ResponseTimeHours int32 `json:"responseTimeHours,omitempty"`
	DeliveryTimeDays  int32 `json:"deliveryTimeDays,omitempty"`

	Rating             float64 `json:"rating,omitempty"` // 0-5
	CompletedCampaigns int32   `json:"completedCampaigns,omitempty"`

	Active  bool `json:"active"`
	Deleted bool `json:"deleted,omitempty"`

	ModerationStatus string `json:"moderationStatus"`
	ModerationNote   string `json:"moderationNote,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// IsListable gates visibility to the public listing and the candidate pool
func (card *InfluencerCard) IsListable() bool {
	return card.Active && !card.Deleted && card.ModerationStatus == ModerationApproved
}

func (card *InfluencerCard) Check() error {
	var problems []string
	if card.UserId == "" {
		problems = append(problems, "missing user id")
	}
	if strings.TrimSpace(card.Platform) == "" {
		problems = append(problems, "missing platform")
	}
	if card.Followers < 0 {
		problems = append(problems, "followers cannot be negative")
	}
	if card.EngagementRate < 0 || card.EngagementRate > 100 {
		problems = append(problems, "engagement rate must be between 0 and 100")
	}
	for ct, price := range card.Pricing {
		if price < 0 {
			problems = append(problems, "negative price for "+ct)
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}

	card.Platform = strings.ToLower(strings.TrimSpace(card.Platform))
	card.ContentTypes = CanonicalContentTypes(card.ContentTypes)
	card.Audience.Countries = LowerSlice(card.Audience.Countries)

	// Pricing keys go canonical too so intersection checks line up
	if len(card.Pricing) > 0 {
		canonical := make(map[string]float64, len(card.Pricing))
		for ct, price := range card.Pricing {
			key := ContentTypeKey(ct)
			if cur, ok := canonical[key]; !ok || price < cur {
				canonical[key] = price
			}
		}
		card.Pricing = canonical
	}

	return nil
}

// PriceFor picks the cheapest priced integration among the wanted content
// types. An empty wanted list considers every priced type.
func (card *InfluencerCard) PriceFor(wanted []string) (contentType string, price float64, ok bool) {
	if len(wanted) == 0 {
		for ct, p := range card.Pricing {
			if !ok || p < price {
				contentType, price, ok = ct, p, true
			}
		}
		return
	}

	for _, w := range wanted {
		key := ContentTypeKey(w)
		if p, found := card.Pricing[key]; found {
			if !ok || p < price {
				contentType, price, ok = key, p, true
			}
		}
	}
	return
}

func GetInfluencerCard(id string, db *bolt.DB, cfg *config.Config) *InfluencerCard {
	var card InfluencerCard
	if err := db.View(func(tx *bolt.Tx) error {
		return misc.GetTxJson(tx, cfg.Bucket.InfluencerCard, id, &card)
	}); err != nil {
		return nil
	}
	return &card
}

// GetListableCards returns cards visible to the public listing, optionally
// pre-filtered by platform at this layer
func GetListableCards(db *bolt.DB, cfg *config.Config, platforms []string) []*InfluencerCard {
	cards := make([]*InfluencerCard, 0, 256)
	db.View(func(tx *bolt.Tx) error {
		tx.Bucket([]byte(cfg.Bucket.InfluencerCard)).ForEach(func(k, v []byte) (err error) {
			var card InfluencerCard
			if err := json.Unmarshal(v, &card); err != nil {
				log.Println("error when unmarshalling influencer card", string(v))
				return nil
			}
			if !card.IsListable() {
				return nil
			}
			if len(platforms) > 0 && !IsInList(platforms, card.Platform) {
				return nil
			}
			cards = append(cards, &card)
			return
		})
		return nil
	})
	return cards
}

type AdvertiserStats struct {
	CampaignsRun int32   `json:"campaignsRun,omitempty"`
	TotalSpent   float64 `json:"totalSpent,omitempty"`
}

type AdvertiserCard struct {
	Id     string `json:"id"`
	UserId string `json:"userId"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Brand       string `json:"brand,omitempty"`

	Budget BudgetRange `json:"budget"`

	// Campaign duration window in unix seconds
	StartsAt int64 `json:"startsAt,omitempty"`
	EndsAt   int64 `json:"endsAt,omitempty"`

	// Requirement thresholds for interested influencers
	MinFollowers  int64   `json:"minFollowers,omitempty"`
	MinEngagement float64 `json:"minEngagement,omitempty"`

	ContactEmail string `json:"contactEmail,omitempty"`

	Stats AdvertiserStats `json:"stats"`

	Active  bool `json:"active"`
	Deleted bool `json:"deleted,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

func (card *AdvertiserCard) Check() error {
	var problems []string
	if card.UserId == "" {
		problems = append(problems, "missing user id")
	}
	if strings.TrimSpace(card.Title) == "" {
		problems = append(problems, "missing title")
	}
	if card.Budget.Min < 0 || card.Budget.Max < card.Budget.Min {
		problems = append(problems, "invalid budget range")
	}
	if card.StartsAt > 0 && card.EndsAt > 0 && card.StartsAt > card.EndsAt {
		problems = append(problems, "campaign window ends before it starts")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
