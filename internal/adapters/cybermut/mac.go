package cybermut

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

// MacCodec builds canonical signing strings for one protocol profile and
// computes or verifies HMAC-SHA1 tags over them.
type MacCodec struct {
	profile ProtocolProfile
	key     []byte
}

// NewMacCodec creates a codec for a profile and a resolved signing key
func NewMacCodec(profile ProtocolProfile, key []byte) *MacCodec {
	return &MacCodec{profile: profile, key: key}
}

// Profile returns the protocol profile the codec signs for
func (c *MacCodec) Profile() ProtocolProfile {
	return c.profile
}

// CanonicalRequest builds the signing string of an outbound payment request
func (c *MacCodec) CanonicalRequest(fields *domain.FieldSet) (string, error) {
	if c.profile.Strategy == domain.MACStrategyLabelled {
		return labelledString(fields), nil
	}
	return positionalString(fields, "", c.profile.RequestFields, c.profile.Separator)
}

// CanonicalResponse builds the signing string of an inbound notification
func (c *MacCodec) CanonicalResponse(fields *domain.FieldSet) (string, error) {
	if c.profile.Strategy == domain.MACStrategyLabelled {
		return labelledString(fields), nil
	}
	return positionalString(fields, c.profile.ResponsePrefix, c.profile.ResponseFields, c.profile.ResponseSeparator)
}

// SignRequest returns the lowercase hex MAC of an outbound request
func (c *MacCodec) SignRequest(fields *domain.FieldSet) (string, error) {
	data, err := c.CanonicalRequest(fields)
	if err != nil {
		return "", err
	}
	return Sign(c.key, data), nil
}

// SealRequest signs an outbound request and pairs the fields with their MAC
func (c *MacCodec) SealRequest(fields *domain.FieldSet) (*domain.SignedMessage, error) {
	mac, err := c.SignRequest(fields)
	if err != nil {
		return nil, err
	}
	return &domain.SignedMessage{Fields: fields, MAC: mac}, nil
}

// SignResponse returns the MAC the gateway is expected to send with a notification:
// uppercase hex for the positional scheme, lowercase for the labelled one.
func (c *MacCodec) SignResponse(fields *domain.FieldSet) (string, error) {
	data, err := c.CanonicalResponse(fields)
	if err != nil {
		return "", err
	}
	mac := Sign(c.key, data)
	if c.profile.Strategy == domain.MACStrategyLabelled {
		return mac, nil
	}
	return strings.ToUpper(mac), nil
}

// VerifyResponse recomputes the notification MAC and compares it to the supplied one
// in constant time. The comparison is case-sensitive.
func (c *MacCodec) VerifyResponse(fields *domain.FieldSet, supplied string) (bool, error) {
	expected, err := c.SignResponse(fields)
	if err != nil {
		return false, err
	}
	if supplied == "" {
		return false, nil
	}
	return hmac.Equal([]byte(expected), []byte(supplied)), nil
}

// Sign computes HMAC-SHA1 over data and returns it as lowercase hex
func Sign(key []byte, data string) string {
	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func positionalString(fields *domain.FieldSet, prefix string, layout []canonicalField, sep string) (string, error) {
	var b strings.Builder

	if prefix != "" {
		v, ok := fields.Get(prefix)
		if !ok {
			return "", domain.NewMalformedFieldError(prefix)
		}
		b.WriteString(v)
	}

	for _, f := range layout {
		switch {
		case f.literal:
			b.WriteString(f.value)
		default:
			v, ok := fields.Get(f.name)
			if !ok && !f.optional {
				return "", domain.NewMalformedFieldError(f.name)
			}
			b.WriteString(v)
		}
		b.WriteString(sep)
	}

	return b.String(), nil
}

// labelledString joins name=value pairs sorted by name with '*', MAC excluded
func labelledString(fields *domain.FieldSet) string {
	names := fields.Names()
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		if name == FieldMAC {
			continue
		}
		pairs = append(pairs, name+"="+fields.Value(name))
	}
	return strings.Join(pairs, positionalSeparator)
}
