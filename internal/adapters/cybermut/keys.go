package cybermut

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

// obfuscatedKeyLength is the length of an exported key blob in hex characters
const obfuscatedKeyLength = 40

// ResolveKeyMaterial picks the active key source from the configuration.
// Resolution order: security key, then the legacy encrypted key, then the passphrase pair.
func ResolveKeyMaterial(cfg *domain.GatewayConfig) (domain.KeyMaterial, error) {
	if key := strings.TrimSpace(cfg.SecurityKey); key != "" {
		return domain.KeyMaterial{Kind: domain.KeyKindSecurityKey, Raw: key}, nil
	}

	if key := strings.TrimSpace(cfg.EncryptedKey); key != "" {
		return domain.KeyMaterial{Kind: domain.KeyKindObfuscatedHex, Raw: key}, nil
	}

	if cfg.SHAKey != "" && cfg.Key != "" {
		return domain.KeyMaterial{Kind: domain.KeyKindPassphrase, SHAKey: cfg.SHAKey, Key: cfg.Key}, nil
	}

	return domain.KeyMaterial{}, domain.NewConfigurationError(
		domain.ErrorCodeConfigKeyMissing,
		"no security key, encrypted key or passphrase pair configured",
		nil,
	)
}

// SigningKey turns resolved key material into the HMAC key bytes.
func SigningKey(material domain.KeyMaterial) ([]byte, error) {
	switch material.Kind {
	case domain.KeyKindSecurityKey:
		key, err := hex.DecodeString(material.Raw)
		if err != nil {
			return nil, domain.NewConfigurationError(domain.ErrorCodeConfigKeyInvalid, "security key is not valid hex", err)
		}
		if len(key) == 0 {
			return nil, domain.NewConfigurationError(domain.ErrorCodeConfigKeyInvalid, "security key is empty", nil)
		}
		return key, nil

	case domain.KeyKindObfuscatedHex:
		return DeobfuscateKey(material.Raw)

	case domain.KeyKindPassphrase:
		return PassphraseKey(material.SHAKey, material.Key)
	}

	return nil, domain.NewConfigurationError(domain.ErrorCodeConfigKeyMissing, "no key material resolved", nil)
}

// DeobfuscateKey restores the 20-byte signing key from an exported key blob.
// The export format stores the penultimate hex digit shifted by 23 code points,
// or replaces a trailing zero digit with 'M'.
func DeobfuscateKey(blob string) ([]byte, error) {
	if len(blob) < obfuscatedKeyLength {
		return nil, domain.NewConfigurationError(
			domain.ErrorCodeConfigKeyInvalid,
			"encrypted key must be at least 40 characters",
			nil,
		).WithDetail("length", len(blob))
	}

	hexStrKey := blob[:38]
	hexFinal := blob[38:40] + "00"

	cca0 := hexFinal[0]
	switch {
	case cca0 > 70 && cca0 < 97:
		hexStrKey += string(rune(cca0-23)) + hexFinal[1:2]
	case hexFinal[1] == 'M':
		hexStrKey += hexFinal[0:1] + "0"
	default:
		hexStrKey += hexFinal[0:2]
	}

	key, err := hex.DecodeString(hexStrKey)
	if err != nil {
		return nil, domain.NewConfigurationError(domain.ErrorCodeConfigKeyInvalid, "encrypted key does not decode to hex", err)
	}
	return key, nil
}

// PassphraseKey derives the legacy signing key: SHA1(shaKey) XOR hex(key),
// the shorter operand zero-padded to the length of the longer one.
func PassphraseKey(shaKey, key string) ([]byte, error) {
	digest := sha1.Sum([]byte(shaKey))
	k1 := digest[:]

	// An odd number of digits decodes with a zero low nibble.
	if len(key)%2 == 1 {
		key += "0"
	}
	k2, err := hex.DecodeString(key)
	if err != nil {
		return nil, domain.NewConfigurationError(domain.ErrorCodeConfigKeyInvalid, "passphrase key is not valid hex", err)
	}

	size := len(k1)
	if len(k2) > size {
		size = len(k2)
	}

	out := make([]byte, size)
	for i := range out {
		var a, b byte
		if i < len(k1) {
			a = k1[i]
		}
		if i < len(k2) {
			b = k2[i]
		}
		out[i] = a ^ b
	}
	return out, nil
}
