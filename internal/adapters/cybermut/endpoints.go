package cybermut

import (
	"net"
	"net/url"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

// Endpoint is the pair of live and test payment page URLs of one bank
type Endpoint struct {
	Live string
	Test string
}

var endpoints = map[domain.BankVariant]Endpoint{
	domain.BankMutuel: {
		Live: "https://paiement.creditmutuel.fr/paiement.cgi",
		Test: "https://paiement.creditmutuel.fr/test/paiement.cgi",
	},
	domain.BankCIC: {
		Live: "https://ssl.paiement.cic-banques.fr/paiement.cgi",
		Test: "https://ssl.paiement.cic-banques.fr/test/paiement.cgi",
	},
	domain.BankOBC: {
		Live: "https://ssl.paiement.banque-obc.fr/paiement.cgi",
		Test: "https://ssl.paiement.banque-obc.fr/test/paiement.cgi",
	},
	domain.BankMonetico: {
		Live: "https://p.monetico-services.com/paiement.cgi",
		Test: "https://p.monetico-services.com/test/paiement.cgi",
	},
}

// EndpointFor returns the URL pair of a bank, Monetico when the variant is unknown
func EndpointFor(bank domain.BankVariant) Endpoint {
	if ep, ok := endpoints[bank]; ok {
		return ep
	}
	return endpoints[domain.BankMonetico]
}

// TestModeActive reports whether test mode applies to a caller. Test mode requires
// the flag and either an empty allow-list or the caller IP being listed.
func TestModeActive(cfg *domain.GatewayConfig, clientIP string) bool {
	if !cfg.TestMode {
		return false
	}
	if len(cfg.TestModeAllowedIPs) == 0 {
		return true
	}

	caller := net.ParseIP(clientIP)
	for _, allowed := range cfg.TestModeAllowedIPs {
		if allowed == clientIP {
			return true
		}
		if caller != nil {
			if ip := net.ParseIP(allowed); ip != nil && ip.Equal(caller) {
				return true
			}
		}
	}
	return false
}

// PostURL selects the endpoint the payment form is submitted to
func PostURL(cfg *domain.GatewayConfig, clientIP string) (string, bool) {
	ep := EndpointFor(cfg.BankVariant)
	if TestModeActive(cfg, clientIP) {
		return ep.Test, true
	}
	return ep.Live, false
}

// Origin returns the scheme and host the payment form posts to
func (e Endpoint) Origin() string {
	u, err := url.Parse(e.Live)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Banks returns the supported bank variants in a stable order
func Banks() []domain.BankVariant {
	return []domain.BankVariant{domain.BankMutuel, domain.BankCIC, domain.BankOBC, domain.BankMonetico}
}
