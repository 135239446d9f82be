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
	CampaignActive = "active"
	CampaignPaused = "paused"
)

// Reasons a campaign gets paused by the system rather than the advertiser
const (
	PausedByAdvertiser  = "advertiser"
	PausedTargetReached = "target_reached"
	PausedOnError       = "error"
)

type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type AudienceSize struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// DemoFilter bounds the audience demographics a matching card must carry.
// Zero values mean "no bound".
type DemoFilter struct {
	Gender    string             `json:"gender,omitempty"` // "m", "f" or "mf"
	AgeGroups map[string]float64 `json:"ageGroups,omitempty"`
	Countries []string           `json:"countries,omitempty"`
}

type Filters struct {
	Platforms    []string      `json:"platforms,omitempty"`
	ContentTypes []string      `json:"contentTypes,omitempty"`
	AudienceSize *AudienceSize `json:"audienceSize,omitempty"`
	Demographics *DemoFilter   `json:"demographics,omitempty"`
}

type ScoringWeights struct {
	Followers    float64 `json:"followers"`
	Engagement   float64 `json:"engagement"`
	Rating       float64 `json:"rating"`
	ResponseTime float64 `json:"responseTime,omitempty"`
}

// AutomaticSettings configures offer distribution for a campaign. It used
// to live inside a free-form metadata blob; now it's typed and validated
// when the campaign is saved.
type AutomaticSettings struct {
	Enabled               bool           `json:"enabled"`
	TargetInfluencerCount int            `json:"targetInfluencerCount"`
	OverbookingPercentage int            `json:"overbookingPercentage"`
	BatchSize             int            `json:"batchSize"`
	BatchDelay            int            `json:"batchDelay"` // In minutes
	Weights               ScoringWeights `json:"scoringWeights"`
	AutoReplacement       bool           `json:"autoReplacement"`
	MaxReplacements       int            `json:"maxReplacements"`
}

// Check validates automatic settings and fills unset knobs from config
// defaults. All violations are joined into one error so the UI can show
// everything at once.
func (as *AutomaticSettings) Check(cfg *config.Config) error {
	if !as.Enabled {
		return nil
	}

	var problems []string
	if as.TargetInfluencerCount <= 0 {
		problems = append(problems, "target influencer count must be greater than zero")
	}
	if as.OverbookingPercentage < 0 {
		problems = append(problems, "overbooking percentage cannot be negative")
	}
	if as.BatchSize < 0 {
		problems = append(problems, "batch size cannot be negative")
	}
	if as.BatchDelay < 0 {
		problems = append(problems, "batch delay cannot be negative")
	}
	w := as.Weights
	if w.Followers < 0 || w.Engagement < 0 || w.Rating < 0 || w.ResponseTime < 0 {
		problems = append(problems, "scoring weights cannot be negative")
	}
	if w.Followers+w.Engagement+w.Rating+w.ResponseTime == 0 {
		problems = append(problems, "at least one scoring weight must be set")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}

	if as.OverbookingPercentage == 0 {
		as.OverbookingPercentage = cfg.Matching.OverbookingPercentage
	}
	if as.BatchSize == 0 {
		as.BatchSize = cfg.Matching.BatchSize
	}
	if as.BatchDelay == 0 {
		as.BatchDelay = cfg.Matching.BatchDelay
	}
	if as.AutoReplacement && as.MaxReplacements == 0 {
		as.MaxReplacements = cfg.Matching.MaxReplacements
	}

	return nil
}

type CampaignMetrics struct {
	OffersSent     int32 `json:"offersSent,omitempty"`
	OffersAccepted int32 `json:"offersAccepted,omitempty"`
	Applications   int32 `json:"applications,omitempty"`
	Views          int32 `json:"views,omitempty"`
}

type Campaign struct {
	Id           string `json:"id"` // Should not be passed for postCampaign
	AdvertiserId string `json:"advertiserId"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Brand       string `json:"brand,omitempty"`

	Budget BudgetRange `json:"budget"`

	Status       string `json:"status"`
	PausedReason string `json:"pausedReason,omitempty"`

	Filters Filters `json:"filters"`

	Automatic *AutomaticSettings `json:"automaticSettings,omitempty"`

	Metrics CampaignMetrics `json:"metrics"`

	// Campaigns are never hard-deleted, only archived
	Archived bool `json:"archived,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

func (cmp *Campaign) IsActive() bool {
	return cmp.Status == CampaignActive && !cmp.Archived
}

func (cmp *Campaign) IsAutomatic() bool {
	return cmp.Automatic != nil && cmp.Automatic.Enabled
}

// Check validates a campaign before it's saved. All violations are joined
// into one aggregated message.
func (cmp *Campaign) Check(cfg *config.Config) error {
	var problems []string
	if cmp.AdvertiserId == "" {
		problems = append(problems, "missing advertiser id")
	}
	if strings.TrimSpace(cmp.Title) == "" {
		problems = append(problems, "missing title")
	}
	if cmp.Budget.Min < 0 || cmp.Budget.Max <= 0 || cmp.Budget.Min > cmp.Budget.Max {
		problems = append(problems, "invalid budget range")
	}
	if as := cmp.Filters.AudienceSize; as != nil && as.Min > 0 && as.Max > 0 && as.Min > as.Max {
		problems = append(problems, "invalid audience size range")
	}
	if cmp.Automatic != nil {
		if err := cmp.Automatic.Check(cfg); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}

	cmp.Filters.ContentTypes = CanonicalContentTypes(cmp.Filters.ContentTypes)
	cmp.Filters.Platforms = LowerSlice(cmp.Filters.Platforms)
	if d := cmp.Filters.Demographics; d != nil {
		d.Countries = LowerSlice(d.Countries)
	}

	return nil
}

func GetCampaign(cid string, db *bolt.DB, cfg *config.Config) *Campaign {
	var (
		v []byte
		g Campaign
	)

	if err := db.View(func(tx *bolt.Tx) error {
		v = tx.Bucket([]byte(cfg.Bucket.Campaign)).Get([]byte(cid))
		return nil
	}); err != nil {
		return nil
	}

	if err := json.Unmarshal(v, &g); err != nil {
		return nil
	}

	return &g
}

func SaveCampaignTx(tx *bolt.Tx, cfg *config.Config, cmp *Campaign) error {
	return misc.PutTxJson(tx, cfg.Bucket.Campaign, cmp.Id, cmp)
}

func GetAllActiveCampaigns(db *bolt.DB, cfg *config.Config) map[string]*Campaign {
	campaignList := make(map[string]*Campaign)

	if err := db.View(func(tx *bolt.Tx) error {
		tx.Bucket([]byte(cfg.Bucket.Campaign)).ForEach(func(k, v []byte) (err error) {
			cmp := &Campaign{}
			if err := json.Unmarshal(v, cmp); err != nil {
				log.Println("error when unmarshalling campaign", string(v))
				return nil
			}
			if cmp.IsActive() {
				campaignList[cmp.Id] = cmp
			}

			return
		})
		return nil
	}); err != nil {
		log.Println("Err getting all active campaigns", err)
	}
	return campaignList
}
