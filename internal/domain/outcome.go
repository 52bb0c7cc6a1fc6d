package domain

import (
	"strconv"
	"strings"

	pkgerrors "github.com/kevin07696/cybermut-service/pkg/errors"
)

// TransactionOutcome is the classification of a verified gateway notification
type TransactionOutcome string

const (
	OutcomeAccepted     TransactionOutcome = "accepted"
	OutcomeAcceptedTest TransactionOutcome = "accepted_test"
	OutcomeRefused      TransactionOutcome = "refused"
	OutcomeUnknown      TransactionOutcome = "unknown"
)

// IsAccepted reports whether funds were captured, in live or test mode
func (o TransactionOutcome) IsAccepted() bool {
	return o == OutcomeAccepted || o == OutcomeAcceptedTest
}

// IsFinal reports whether the outcome moves the order out of pending payment
func (o TransactionOutcome) IsFinal() bool {
	return o != OutcomeUnknown
}

// String returns the string representation
func (o TransactionOutcome) String() string {
	return string(o)
}

// Notification is the result of verifying an inbound gateway notification
type Notification struct {
	Reference  string
	ReturnCode string
	Outcome    TransactionOutcome
	MACValid   bool
	Fields     *FieldSet
	Message    string // human readable outcome comment for the order history

	// Status3DS is the raw status3ds value: -1 without 3-D Secure, 1 low risk, 4 high risk
	Status3DS string

	// Refusal details a refused or unclassified payment, nil when accepted
	Refusal *pkgerrors.PaymentError
}

// ThreeDSRisky reports whether the bank flagged the 3-D Secure authentication
// above low risk. Missing or unparsable values are not risky.
func (n *Notification) ThreeDSRisky() bool {
	status, err := strconv.Atoi(strings.TrimSpace(n.Status3DS))
	if err != nil {
		return false
	}
	return status > 1
}
