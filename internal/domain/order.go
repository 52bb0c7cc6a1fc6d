package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Address is a billing or shipping address snapshot
type Address struct {
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	Street        []string `json:"street"`
	City          string   `json:"city"`
	Postcode      string   `json:"postcode"`
	RegionCountry string   `json:"region_country,omitempty"` // country id of the region, e.g. "FR"
	RegionCode    string   `json:"region_code,omitempty"`
	CountryISO2   string   `json:"country"`
	Phone         string   `json:"phone,omitempty"`
}

// Order is the read-only order snapshot a payment request is built from
type Order struct {
	Reference       string          `json:"reference"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"` // ISO 4217, e.g. "EUR"
	CustomerEmail   string          `json:"customer_email"`
	StoreLocale     string          `json:"store_locale"` // e.g. "fr_FR"
	BillingAddress  Address         `json:"billing_address"`
	ShippingAddress *Address        `json:"shipping_address,omitempty"` // nil when the order ships to the billing address or is virtual

	// RealOrderIDs holds the split order ids of a multi-shipping checkout.
	RealOrderIDs []string `json:"real_order_ids,omitempty"`
}

// PaymentReference returns the reference sent to the gateway: the comma-joined
// real order ids for multi-shipping checkouts, else the order reference.
func (o *Order) PaymentReference() string {
	if len(o.RealOrderIDs) > 0 {
		return strings.Join(o.RealOrderIDs, ",")
	}
	return o.Reference
}

// Validate checks that the order can be submitted to the gateway
func (o *Order) Validate() error {
	if o.Reference == "" && len(o.RealOrderIDs) == 0 {
		return NewDomainError(ErrorCodeValidationFailed, "order reference is required").
			WithDetail("field", "reference")
	}
	if o.Amount.IsNegative() {
		return NewDomainError(ErrorCodeValidationAmountInvalid, "amount must not be negative").
			WithDetail("amount", o.Amount.String())
	}
	if len(o.Currency) != 3 {
		return NewDomainError(ErrorCodeValidationFailed, "currency must be a 3-letter ISO code").
			WithDetail("currency", o.Currency)
	}
	return nil
}

// Shipping returns the shipping address, falling back to billing
func (o *Order) Shipping() Address {
	if o.ShippingAddress != nil {
		return *o.ShippingAddress
	}
	return o.BillingAddress
}
