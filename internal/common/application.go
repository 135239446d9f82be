package common

import (
	"errors"
	"strings"
)

const (
	ApplicationSent       = "sent"
	ApplicationAccepted   = "accepted"
	ApplicationDeclined   = "declined"
	ApplicationInProgress = "in_progress"
	ApplicationCompleted  = "completed"
	ApplicationCancelled  = "cancelled"
)

// Target kinds an application can point at
const (
	TargetCampaign       = "campaign"
	TargetAdvertiserCard = "advertiser_card"
	TargetInfluencerCard = "influencer_card"
)

type ApplicationData struct {
	Message      string   `json:"message,omitempty"`
	Rate         float64  `json:"rate,omitempty"`
	TimelineDays int32    `json:"timelineDays,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
}

type Application struct {
	Id string `json:"id"`

	ApplicantId string `json:"applicantId"`
	TargetId    string `json:"targetId"` // the user on the other side

	TargetType  string `json:"targetType"`
	ReferenceId string `json:"referenceId"` // campaign or card being applied to

	Data ApplicationData `json:"data"`

	Status string `json:"status"`

	SentAt      int64 `json:"sentAt,omitempty"`
	RespondedAt int64 `json:"respondedAt,omitempty"`
	CompletedAt int64 `json:"completedAt,omitempty"`

	Views int32 `json:"views,omitempty"`
}

func (app *Application) Check() error {
	var problems []string
	if app.ApplicantId == "" {
		problems = append(problems, "missing applicant id")
	}
	if app.TargetId == "" {
		problems = append(problems, "missing target id")
	}
	if app.ApplicantId != "" && app.ApplicantId == app.TargetId {
		problems = append(problems, "cannot apply to yourself")
	}
	switch app.TargetType {
	case TargetCampaign, TargetAdvertiserCard, TargetInfluencerCard:
	default:
		problems = append(problems, "unknown target type")
	}
	if app.ReferenceId == "" {
		problems = append(problems, "missing reference id")
	}
	if app.Data.Rate < 0 {
		problems = append(problems, "rate cannot be negative")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

var applicationTransitions = map[string][]string{
	ApplicationSent:       {ApplicationAccepted, ApplicationDeclined, ApplicationCancelled},
	ApplicationAccepted:   {ApplicationInProgress, ApplicationCancelled},
	ApplicationInProgress: {ApplicationCompleted, ApplicationCancelled},
}

func (app *Application) CanTransition(to string) bool {
	for _, s := range applicationTransitions[app.Status] {
		if s == to {
			return true
		}
	}
	return false
}
