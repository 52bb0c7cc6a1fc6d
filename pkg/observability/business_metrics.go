package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound payment requests signed and handed to the customer browser
	paymentRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybermut_payment_requests_total",
		Help: "Total payment requests built for the bank payment page",
	}, []string{
		"bank",      // mutuel, cic, obc, monetico
		"version",   // protocol version
		"test_mode", // true when the test endpoint was selected
		"status",    // signed, failed
	})

	// Inbound notifications by classified outcome
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybermut_notifications_total",
		Help: "Total payment notifications received from the bank",
	}, []string{
		"bank",
		"outcome",   // accepted, accepted_test, refused, unknown
		"mac_valid", // true, false
	})

	// Refused or unclassified payments by refusal category
	refusalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybermut_refusals_total",
		Help: "Total authenticated notifications that did not accept the payment",
	}, []string{
		"bank",
		"category",  // declined, fraud, authentication, invalid_request
		"retriable", // true when the customer may try again
	})

	macMismatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybermut_mac_mismatches_total",
		Help: "Notifications rejected because the MAC was missing or did not match",
	}, []string{
		"bank",
		"reason", // missing, mismatch, malformed
	})
)

// RecordPaymentRequest records a built (or failed) outbound payment request
func RecordPaymentRequest(bank, version string, testMode bool, status string) {
	paymentRequestsTotal.WithLabelValues(bank, version, strconv.FormatBool(testMode), status).Inc()
}

// RecordNotification records a verified notification
func RecordNotification(bank, outcome string, macValid bool) {
	notificationsTotal.WithLabelValues(bank, outcome, strconv.FormatBool(macValid)).Inc()
}

// RecordMACMismatch records a notification that failed authentication
func RecordMACMismatch(bank, reason string) {
	macMismatchesTotal.WithLabelValues(bank, reason).Inc()
}

// RecordRefusal records an authenticated notification that refused the payment
func RecordRefusal(bank, category string, retriable bool) {
	refusalsTotal.WithLabelValues(bank, category, strconv.FormatBool(retriable)).Inc()
}
