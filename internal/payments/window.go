package payments

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Window statuses
const (
	WindowPending   = "pending"
	WindowPaying    = "paying"
	WindowPaid      = "paid"
	WindowConfirmed = "confirmed"
	WindowFailed    = "failed"
	WindowCompleted = "completed"
	WindowCancelled = "cancelled"
)

// Payment types
const (
	FullPrepay           = "full_prepay"
	PartialPrepayPostpay = "partial_prepay_postpay"
	Postpay              = "postpay"
)

var (
	ErrSameParty     = errors.New("payer and payee must be distinct")
	ErrBadTransition = errors.New("invalid payment status transition")
	ErrNotEditable   = errors.New("payment window is no longer editable")
)

type HistoryEntry struct {
	Id   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Ts   int64  `json:"ts"`
	Note string `json:"note,omitempty"`
}

// Window tracks one payment obligation between two marketplace parties.
// Status history is append-only.
type Window struct {
	Id string `json:"id"`

	PayerId string `json:"payerId"`
	PayeeId string `json:"payeeId"`
	OfferId string `json:"offerId,omitempty"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	PaymentType string `json:"paymentType"`
	Status      string `json:"status"`

	// Stripe customer for the payer, when card payments are enabled
	CustomerId string `json:"customerId,omitempty"`

	History []HistoryEntry `json:"history,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

func (w *Window) Check() error {
	var problems []string
	if w.PayerId == "" || w.PayeeId == "" {
		problems = append(problems, "missing payer or payee id")
	}
	if w.PayerId != "" && w.PayerId == w.PayeeId {
		problems = append(problems, ErrSameParty.Error())
	}
	if w.Amount <= 0 {
		problems = append(problems, "amount must be greater than zero")
	}
	switch w.PaymentType {
	case FullPrepay, PartialPrepayPostpay, Postpay:
	default:
		problems = append(problems, "unknown payment type")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	if w.Currency == "" {
		w.Currency = "usd"
	}
	return nil
}

// Editable is tied to status: amounts and parties can only change before
// any money starts moving
func (w *Window) Editable() bool {
	return w.Status == WindowPending
}

var windowTransitions = map[string][]string{
	WindowPending:   {WindowPaying, WindowCancelled},
	WindowPaying:    {WindowPaid, WindowFailed, WindowCancelled},
	WindowPaid:      {WindowConfirmed, WindowCancelled},
	WindowConfirmed: {WindowCompleted},
	WindowFailed:    {WindowPaying, WindowCancelled},
}

func (w *Window) CanTransition(to string) bool {
	for _, s := range windowTransitions[w.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the window to a new status and appends to its history
func (w *Window) Transition(to, note string) error {
	if !w.CanTransition(to) {
		return ErrBadTransition
	}

	now := time.Now().Unix()
	w.History = append(w.History, HistoryEntry{
		Id:   uuid.NewString(),
		From: w.Status,
		To:   to,
		Ts:   now,
		Note: note,
	})
	w.Status = to
	w.UpdatedAt = now
	return nil
}
