package domain

import (
	"math"
	"strconv"
	"strings"
)

// DefaultProtocolVersion is used when no protocol version is configured
const DefaultProtocolVersion = "1.2open"

// BankVariant identifies which acquiring bank brand hosts the payment page
type BankVariant string

const (
	BankMutuel   BankVariant = "mutuel"
	BankCIC      BankVariant = "cic"
	BankOBC      BankVariant = "obc"
	BankMonetico BankVariant = "monetico"
)

// IsValid checks if the bank variant is one of the supported brands
func (b BankVariant) IsValid() bool {
	switch b {
	case BankMutuel, BankCIC, BankOBC, BankMonetico:
		return true
	}
	return false
}

// MACStrategy selects how the signing string is assembled
type MACStrategy string

const (
	// MACStrategyPositional joins field values in the fixed per-version order
	MACStrategyPositional MACStrategy = "positional"
	// MACStrategyLabelled joins name=value pairs sorted by name
	MACStrategyLabelled MACStrategy = "labelled"
)

// IsValid checks if the strategy is known
func (s MACStrategy) IsValid() bool {
	return s == MACStrategyPositional || s == MACStrategyLabelled
}

// Language is an authorized payment page language
type Language struct {
	Code string // Two-letter gateway code, e.g. "FR"
	Name string // Display name, e.g. "Français"
}

// GatewayConfig holds the merchant configuration for one Cybermut/Monetico terminal.
// It is loaded once per request context and never mutated by the core.
type GatewayConfig struct {
	ProtocolVersion string
	MerchantID      string // TPE
	SiteCode        string // societe
	BankVariant     BankVariant
	MACStrategy     MACStrategy

	TestMode           bool
	TestModeAllowedIPs []string // empty means test mode applies to every caller

	// Key sources, already decrypted from at-rest storage.
	SecurityKey  string // plaintext merchant key (hex)
	EncryptedKey string // legacy exported key with one obfuscated byte
	SHAKey       string // passphrase half of the legacy pair
	Key          string // hex half of the legacy pair

	Description     string // texte-libre override
	ButtonLabel     string
	DefaultLanguage string
	Languages       []Language

	NotifyURL  string
	SuccessURL string
	ErrorURL   string
}

// Version returns the configured protocol version or the default one
func (c *GatewayConfig) Version() string {
	if c.ProtocolVersion == "" {
		return DefaultProtocolVersion
	}
	return c.ProtocolVersion
}

// MajorVersion returns the integer formed by the leading digits of the protocol
// version ("1.2open" -> 1, "3.0" -> 3). A version without leading digits is 0.
func (c *GatewayConfig) MajorVersion() int {
	return ParseMajorVersion(c.Version())
}

// Strategy returns the configured MAC strategy, positional by default
func (c *GatewayConfig) Strategy() MACStrategy {
	if c.MACStrategy == "" {
		return MACStrategyPositional
	}
	return c.MACStrategy
}

// IsExtended reports whether the v3+ field layout applies
func (c *GatewayConfig) IsExtended() bool {
	return c.MajorVersion() >= 3
}

// ParseMajorVersion extracts the leading integer of a protocol version string.
// Leading digits too large for an int saturate to math.MaxInt.
func ParseMajorVersion(version string) int {
	version = strings.TrimSpace(version)
	end := 0
	for end < len(version) && version[end] >= '0' && version[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	major, err := strconv.Atoi(version[:end])
	if err != nil {
		// only digits reach Atoi, so the error is a range overflow
		return math.MaxInt
	}
	return major
}
