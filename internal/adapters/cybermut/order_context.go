package cybermut

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

// Truncation limits of the contexte_commande address fields
const (
	maxNameLength    = 45
	maxAddressLength = 255
	maxLineLength    = 50
	maxCityLength    = 50
	maxPhoneLength   = 18
)

// ContextAddress is one address block of the order context
type ContextAddress struct {
	Name            string  `json:"name"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Address         string  `json:"address"`
	AddressLine1    string  `json:"addressLine1"`
	AddressLine2    string  `json:"addressLine2,omitempty"`
	AddressLine3    string  `json:"addressLine3,omitempty"`
	City            string  `json:"city"`
	PostalCode      string  `json:"postalCode"`
	StateOrProvince string  `json:"stateOrProvince,omitempty"`
	Country         string  `json:"country"`
	Phone           *string `json:"phone,omitempty"`
}

// OrderContext is the billing and shipping summary sent as contexte_commande
type OrderContext struct {
	Billing  ContextAddress `json:"billing"`
	Shipping ContextAddress `json:"shipping"`
}

// BuildOrderContext creates the order context. Orders without a shipping
// address repeat the billing block.
func BuildOrderContext(order *domain.Order) OrderContext {
	billing := contextAddress(order.BillingAddress)
	shipping := billing
	if order.ShippingAddress != nil {
		shipping = contextAddress(*order.ShippingAddress)
	}
	return OrderContext{Billing: billing, Shipping: shipping}
}

// EncodeOrderContext renders the order context as base64 JSON
func EncodeOrderContext(order *domain.Order) (string, error) {
	data, err := json.Marshal(BuildOrderContext(order))
	if err != nil {
		return "", fmt.Errorf("failed to marshal order context: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func contextAddress(a domain.Address) ContextAddress {
	out := ContextAddress{
		Name:       truncate(a.FirstName+" "+a.LastName, maxNameLength),
		FirstName:  truncate(a.FirstName, maxNameLength),
		LastName:   truncate(a.LastName, maxNameLength),
		Address:    truncate(strings.Join(a.Street, " "), maxAddressLength),
		City:       truncate(a.City, maxCityLength),
		PostalCode: a.Postcode,
		Country:    a.CountryISO2,
	}

	if len(a.Street) > 0 {
		out.AddressLine1 = truncate(a.Street[0], maxLineLength)
	}
	if len(a.Street) > 1 {
		out.AddressLine2 = truncate(a.Street[1], maxLineLength)
	}
	if len(a.Street) > 2 {
		out.AddressLine3 = truncate(a.Street[2], maxLineLength)
	}

	if a.RegionCountry != "" && a.RegionCode != "" {
		out.StateOrProvince = a.RegionCountry + "_" + a.RegionCode
	}

	// Only international numbers are forwarded; others are sent blank.
	if a.Phone != "" {
		phone := ""
		if strings.HasPrefix(a.Phone, "+") {
			phone = truncate(a.Phone, maxPhoneLength)
		}
		out.Phone = &phone
	}

	return out
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
