package domain

// KeyKind identifies the active KeyMaterial variant
type KeyKind string

const (
	KeyKindSecurityKey   KeyKind = "security_key"
	KeyKindObfuscatedHex KeyKind = "obfuscated_hex"
	KeyKindPassphrase    KeyKind = "passphrase"
)

// KeyMaterial is the resolved signing secret. Exactly one variant is populated:
//   - SecurityKey / ObfuscatedHex: Raw holds the decrypted key blob
//   - Passphrase: SHAKey and Key hold the legacy pair
type KeyMaterial struct {
	Kind   KeyKind
	Raw    string
	SHAKey string
	Key    string
}

// IsBlob reports whether the material is a key blob, which selects the
// standard HMAC construction instead of the passphrase derivation.
func (k KeyMaterial) IsBlob() bool {
	return (k.Kind == KeyKindSecurityKey || k.Kind == KeyKindObfuscatedHex) && k.Raw != ""
}
