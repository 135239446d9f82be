package common

import "errors"

// ChatMessage is one entry in an offer's negotiation thread
type ChatMessage struct {
	Id       string `json:"id"`
	OfferId  string `json:"offerId"`
	SenderId string `json:"senderId"`
	Body     string `json:"body"`
	SentAt   int64  `json:"sentAt"`
}

func (m *ChatMessage) Check() error {
	if m.OfferId == "" || m.SenderId == "" {
		return errors.New("missing offer or sender id")
	}
	if m.Body == "" {
		return errors.New("empty message")
	}
	return nil
}
