package cybermut

import (
	"fmt"
	"strings"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

var (
	extendedAckAccepted = []string{"version=2", "cdr=0"}
	extendedAckRejected = []string{"version=2", "cdr=1"}
	legacyAckAccepted   = []string{"Pragma: no-cache", "Content-type : text/plain", "Version: 1", "OK"}
	legacyAckRejected   = []string{"Pragma: no-cache", "Content-type : text/plain", "Version: 1", "Document falsifie"}
)

// Acknowledgement renders the plaintext body returned to the bank after a notification.
// The bank only needs to know whether the message was authentic.
func Acknowledgement(cfg *domain.GatewayConfig, macValid bool) string {
	var lines []string
	switch {
	case cfg.IsExtended() && macValid:
		lines = extendedAckAccepted
	case cfg.IsExtended():
		lines = extendedAckRejected
	case macValid:
		lines = legacyAckAccepted
	default:
		lines = legacyAckRejected
	}
	return strings.Join(lines, "\n") + "\n"
}

// OutcomeMessage builds the order history comment for a verified notification
func OutcomeMessage(cfg *domain.GatewayConfig, outcome domain.TransactionOutcome, fields *domain.FieldSet) string {
	var b strings.Builder

	switch outcome {
	case domain.OutcomeAccepted, domain.OutcomeAcceptedTest:
		b.WriteString("Payment accepted by Cybermut")
		if auth, ok := fields.Get(FieldAuthNumber); ok && cfg.IsExtended() {
			fmt.Fprintf(&b, "\nNumber of authorization: %s", auth)
			writeCardLines(&b, fields)
		}
	case domain.OutcomeRefused:
		b.WriteString("Payment refused by Cybermut")
		if motive, ok := fields.Get(FieldRefusalMotive); ok && cfg.IsExtended() {
			fmt.Fprintf(&b, "\nMotive for refusal: %s", motive)
			writeCardLines(&b, fields)
		}
	default:
		fmt.Fprintf(&b, "Unknown Cybermut return code %q", fields.Value(FieldReturnCode))
	}

	return b.String()
}

func writeCardLines(b *strings.Builder, fields *domain.FieldSet) {
	fmt.Fprintf(b, "\nWas the visual cryptogram seized: %s", fields.Value(FieldCVX))
	fmt.Fprintf(b, "\nValidity of the card: %s", fields.Value(FieldValidity))
	fmt.Fprintf(b, "\nType of the card: %s", fields.Value(FieldBrand))
}
