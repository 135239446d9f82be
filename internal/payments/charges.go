package payments

import (
	"errors"

	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/charge"
	"github.com/stripe/stripe-go/currency"
	"github.com/stripe/stripe-go/customer"
)

var (
	ErrAmount     = errors.New("Attempting to charge zero dollar value")
	ErrCreditCard = errors.New("Credit card missing")
	ErrCustomer   = errors.New("Unrecognized customer")
)

// Charge bills the payer's stored card as their window enters "paying".
// Expects a value in dollars. Only called when a stripe key is configured;
// the window machine itself never depends on it.
func Charge(custID, windowID string, amount float64) error {
	if amount == 0 {
		return ErrAmount
	}

	if custID == "" {
		return ErrCreditCard
	}

	cust, err := customer.Get(custID, nil)
	if err != nil {
		return ErrCustomer
	}

	chargeParams := &stripe.ChargeParams{
		Amount:   uint64(amount * 100),
		Currency: currency.USD,
		Customer: cust.ID,
		Params: stripe.Params{
			Meta: map[string]string{
				"windowID": windowID,
			},
		},
	}

	if cust.Sources != nil && len(cust.Sources.Values) > 0 {
		chargeParams.SetSource(cust.Sources.Values[0].Card.ID)
	} else {
		return ErrCreditCard
	}

	_, err = charge.New(chargeParams)
	return err
}
