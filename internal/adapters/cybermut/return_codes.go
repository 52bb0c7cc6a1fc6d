package cybermut

import (
	"github.com/kevin07696/cybermut-service/internal/domain"
	pkgerrors "github.com/kevin07696/cybermut-service/pkg/errors"
)

// Gateway return codes
const (
	ReturnCodeAccepted     = "paiement"
	ReturnCodeAcceptedTest = "payetest"
	ReturnCodeRefused      = "Annulation"
)

// ReturnCodeInfo contains detailed information about a code-retour value
type ReturnCodeInfo struct {
	Code        string
	Display     string
	Description string
	Outcome     domain.TransactionOutcome
	IsApproved  bool
	IsDeclined  bool
	Category    pkgerrors.ErrorCategory
	UserMessage string
}

// Return codes are matched exactly, case included.
var returnCodes = map[string]ReturnCodeInfo{
	ReturnCodeAccepted: {
		Code:        ReturnCodeAccepted,
		Display:     "PAYMENT",
		Description: "Payment accepted",
		Outcome:     domain.OutcomeAccepted,
		IsApproved:  true,
		Category:    pkgerrors.CategoryApproved,
		UserMessage: "Payment successful",
	},
	ReturnCodeAcceptedTest: {
		Code:        ReturnCodeAcceptedTest,
		Display:     "TEST PAYMENT",
		Description: "Payment accepted on the test platform",
		Outcome:     domain.OutcomeAcceptedTest,
		IsApproved:  true,
		Category:    pkgerrors.CategoryApproved,
		UserMessage: "Test payment successful",
	},
	ReturnCodeRefused: {
		Code:        ReturnCodeRefused,
		Display:     "CANCELLED",
		Description: "Payment refused or cancelled",
		Outcome:     domain.OutcomeRefused,
		IsDeclined:  true,
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "Payment refused by your bank. Please use a different payment method.",
	},
}

// RefusalMotiveInfo describes a motifrefus value sent with refused payments
type RefusalMotiveInfo struct {
	Motive      string
	Description string
	IsRetriable bool
	Category    pkgerrors.ErrorCategory
}

var refusalMotives = map[string]RefusalMotiveInfo{
	"Appel Phonie": {
		Motive:      "Appel Phonie",
		Description: "Issuer requires a voice authorization",
		IsRetriable: true,
		Category:    pkgerrors.CategoryDeclined,
	},
	"Refus": {
		Motive:      "Refus",
		Description: "Refused by the issuer",
		Category:    pkgerrors.CategoryDeclined,
	},
	"Interdit": {
		Motive:      "Interdit",
		Description: "Card blocked by the issuer",
		Category:    pkgerrors.CategoryFraud,
	},
	"filtrage": {
		Motive:      "filtrage",
		Description: "Blocked by the merchant filtering rules",
		Category:    pkgerrors.CategoryFraud,
	},
	"scoring": {
		Motive:      "scoring",
		Description: "Blocked by the fraud scoring",
		Category:    pkgerrors.CategoryFraud,
	},
	"3DSecure": {
		Motive:      "3DSecure",
		Description: "3-D Secure authentication failed",
		IsRetriable: true,
		Category:    pkgerrors.CategoryAuthentication,
	},
}

// GetReturnCode retrieves information for a code-retour value.
// Unknown codes never classify as accepted.
func GetReturnCode(code string) ReturnCodeInfo {
	if info, exists := returnCodes[code]; exists {
		return info
	}
	return ReturnCodeInfo{
		Code:        code,
		Display:     "UNKNOWN",
		Description: "Unknown return code",
		Outcome:     domain.OutcomeUnknown,
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "Payment status could not be determined. Please contact support.",
	}
}

// GetRefusalMotive retrieves information for a motifrefus value
func GetRefusalMotive(motive string) RefusalMotiveInfo {
	if info, exists := refusalMotives[motive]; exists {
		return info
	}
	return RefusalMotiveInfo{
		Motive:      motive,
		Description: "Refused",
		Category:    pkgerrors.CategoryDeclined,
	}
}

// ToPaymentError converts a refused or unknown return code to a PaymentError.
// A non-empty motive refines the category and retriability.
func (r ReturnCodeInfo) ToPaymentError(motive string) *pkgerrors.PaymentError {
	err := &pkgerrors.PaymentError{
		Code:           r.Code,
		Message:        r.UserMessage,
		GatewayMessage: motive,
		Category:       r.Category,
		Details:        map[string]interface{}{"display": r.Display, "description": r.Description},
	}
	if motive != "" {
		info := GetRefusalMotive(motive)
		err.Category = info.Category
		err.IsRetriable = info.IsRetriable
		err.Details["motive"] = info.Description
	}
	return err
}
