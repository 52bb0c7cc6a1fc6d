package cybermut

import (
	"strings"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

// ResolveLanguage picks the lgue value. A single authorized language always wins;
// otherwise the store locale's language is used when authorized, else the configured default.
func ResolveLanguage(cfg *domain.GatewayConfig, storeLocale string) string {
	if len(cfg.Languages) == 1 {
		return cfg.Languages[0].Code
	}

	if len(storeLocale) >= 2 {
		code := strings.ToUpper(storeLocale[:2])
		for _, lang := range cfg.Languages {
			if lang.Code == code {
				return code
			}
		}
	}

	return cfg.DefaultLanguage
}

// DefaultLanguages are the payment page languages the gateway accepts
var DefaultLanguages = []domain.Language{
	{Code: "FR", Name: "Français"},
	{Code: "EN", Name: "English"},
	{Code: "DE", Name: "Deutsch"},
	{Code: "IT", Name: "Italiano"},
	{Code: "ES", Name: "Español"},
	{Code: "NL", Name: "Nederlands"},
	{Code: "PT", Name: "Português"},
	{Code: "SV", Name: "Svenska"},
}
