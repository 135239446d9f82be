package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"

	"github.com/missionMeteora/mandrill"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

func New(loc string) (*Config, error) {
	var c Config

	f, err := os.Open(loc)
	if err != nil {
		log.Println("Config error", err)
		return nil, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&c); err != nil {
		log.Println("Config error", err)
		return nil, err
	}

	c.SetDefaults()

	return &c, nil
}

type Config struct {
	Host string `json:"host"`
	Port string `json:"port"`

	DBPath string `json:"dbPath"`
	DBName string `json:"dbName"`

	// Sandbox compresses batch delays and disables outbound email
	Sandbox bool `json:"sandbox"`

	OpsEmail string `json:"opsEmail"`
	DashURL  string `json:"dashURL"`

	Mandrill struct {
		APIKey     string `json:"apiKey"`
		SubAccount string `json:"subAccount"`
		FromEmail  string `json:"fromEmail"`
		FromName   string `json:"fromName"`
	} `json:"mandrill"`

	Stripe struct {
		Key string `json:"key"`
	} `json:"stripe"`

	Matching struct {
		BatchSize             int `json:"batchSize"`
		BatchDelay            int `json:"batchDelay"` // In minutes
		OverbookingPercentage int `json:"overbookingPercentage"`
		MaxReplacements       int `json:"maxReplacements"`
		RateLimitHours        int `json:"rateLimitHours"` // Rolling window for repeat interactions
	} `json:"matching"`

	Bucket struct {
		User           string `json:"user"`
		Login          string `json:"login"`
		Token          string `json:"token"`
		Campaign       string `json:"campaign"`
		InfluencerCard string `json:"influencerCard"`
		AdvertiserCard string `json:"advertiserCard"`
		Offer          string `json:"offer"`
		Application    string `json:"application"`
		Favorite       string `json:"favorite"`
		Payment        string `json:"payment"`
		Chat           string `json:"chat"`
		Blacklist      string `json:"blacklist"`
		Tracking       string `json:"tracking"`
	} `json:"bucket"`
}

func (c *Config) SetDefaults() {
	b := &c.Bucket
	for name, val := range map[*string]string{
		&b.User: "user", &b.Login: "login", &b.Token: "token",
		&b.Campaign: "campaign", &b.InfluencerCard: "influencerCard",
		&b.AdvertiserCard: "advertiserCard", &b.Offer: "offer",
		&b.Application: "application", &b.Favorite: "favorite",
		&b.Payment: "payment", &b.Chat: "chat", &b.Blacklist: "blacklist",
		&b.Tracking: "tracking",
	} {
		if *name == "" {
			*name = val
		}
	}

	if c.Matching.BatchSize == 0 {
		c.Matching.BatchSize = 5
	}
	if c.Matching.BatchDelay == 0 {
		c.Matching.BatchDelay = 30
	}
	if c.Matching.OverbookingPercentage == 0 {
		c.Matching.OverbookingPercentage = 50
	}
	if c.Matching.MaxReplacements == 0 {
		c.Matching.MaxReplacements = 3
	}
	if c.Matching.RateLimitHours == 0 {
		c.Matching.RateLimitHours = 1
	}
}

// AllBuckets returns every bucket name that should exist in the db
func (c *Config) AllBuckets() []string {
	return []string{
		"index",
		c.Bucket.User,
		c.Bucket.Login,
		c.Bucket.Token,
		c.Bucket.Campaign,
		c.Bucket.InfluencerCard,
		c.Bucket.AdvertiserCard,
		c.Bucket.Offer,
		c.Bucket.Application,
		c.Bucket.Favorite,
		c.Bucket.Payment,
		c.Bucket.Chat,
		c.Bucket.Blacklist,
		c.Bucket.Tracking,
	}
}

func (c *Config) MailClient() *mandrill.Client {
	if c.Mandrill.APIKey == "" || c.Sandbox {
		return nil
	}
	return mandrill.New(c.Mandrill.APIKey, c.Mandrill.SubAccount, c.Mandrill.FromEmail, c.Mandrill.FromName)
}
