package common

import "errors"

var ErrDupFavorite = errors.New("already in favorites")

type Favorite struct {
	Id         string `json:"id"`
	UserId     string `json:"userId"`
	TargetType string `json:"targetType"` // influencer_card or advertiser_card
	TargetId   string `json:"targetId"`
	CreatedAt  int64  `json:"createdAt,omitempty"`
}

// Key is what makes a favorite unique per (user, target)
func (f *Favorite) Key() string {
	return f.UserId + ":" + f.TargetType + ":" + f.TargetId
}

func (f *Favorite) Check() error {
	if f.UserId == "" || f.TargetId == "" {
		return errors.New("missing user or target id")
	}
	if f.TargetType != TargetInfluencerCard && f.TargetType != TargetAdvertiserCard {
		return errors.New("unknown target type")
	}
	return nil
}
