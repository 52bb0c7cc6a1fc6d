package cybermut

import (
	"github.com/kevin07696/cybermut-service/internal/domain"
)

// Field names used on the wire
const (
	FieldTPE              = "TPE"
	FieldDate             = "date"
	FieldAmount           = "montant"
	FieldReference        = "reference"
	FieldFreeText         = "texte-libre"
	FieldVersion          = "version"
	FieldLanguage         = "lgue"
	FieldSiteCode         = "societe"
	FieldEmail            = "mail"
	FieldNotifyURL        = "url_retour"
	FieldSuccessURL       = "url_retour_ok"
	FieldErrorURL         = "url_retour_err"
	FieldButton           = "bouton"
	FieldOrderContext     = "contexte_commande"
	FieldMAC              = "MAC"
	FieldReturnCode       = "code-retour"
	FieldReturnPlus       = "retourPLUS"
	FieldCVX              = "cvx"
	FieldValidity         = "vld"
	FieldBrand            = "brand"
	FieldStatus3DS        = "status3ds"
	FieldAuthNumber       = "numauto"
	FieldRefusalMotive    = "motifrefus"
	FieldCardOrigin       = "originecb"
	FieldCardBIN          = "bincb"
	FieldCardHash         = "hpancb"
	FieldClientIP         = "ipclient"
	FieldTransactionOrig  = "originetr"
	FieldVERes            = "veres"
	FieldPARes            = "pares"
	extendedResponseToken = "3.0"
	positionalSeparator   = "*"
	legacyRespSeparator   = "+"
	extendedPlaceholders  = 9
)

// canonicalField is one slot of a positional signing string
type canonicalField struct {
	name     string
	literal  bool   // value is fixed by the profile instead of read from the fields
	value    string // literal value
	optional bool   // absent fields sign as empty
}

func field(name string) canonicalField {
	return canonicalField{name: name}
}

func optionalField(name string) canonicalField {
	return canonicalField{name: name, optional: true}
}

func literal(name, value string) canonicalField {
	return canonicalField{name: name, literal: true, value: value}
}

// ProtocolProfile describes how a protocol version lays out and signs its messages
type ProtocolProfile struct {
	Name     string
	Major    int
	Strategy domain.MACStrategy

	RequestFields     []canonicalField
	ResponseFields    []canonicalField
	ResponsePrefix    string // field whose value starts the response string with no separator
	Separator         string
	ResponseSeparator string

	// ResponseRequired lists the posted fields a notification must carry
	ResponseRequired []string
}

// RequestFieldCount is the number of slots in the outbound signing string
func (p ProtocolProfile) RequestFieldCount() int {
	return len(p.RequestFields)
}

// ResponseFieldCount is the number of slots in the inbound signing string, prefix excluded
func (p ProtocolProfile) ResponseFieldCount() int {
	return len(p.ResponseFields)
}

var legacyRequestFields = []canonicalField{
	field(FieldTPE),
	field(FieldDate),
	field(FieldAmount),
	field(FieldReference),
	field(FieldFreeText),
	field(FieldVersion),
	field(FieldLanguage),
	field(FieldSiteCode),
}

// ProfileFor selects the protocol profile from the configured version and strategy
func ProfileFor(cfg *domain.GatewayConfig) ProtocolProfile {
	if cfg.IsExtended() {
		return extendedProfile(cfg)
	}
	return legacyProfile(cfg)
}

func legacyProfile(cfg *domain.GatewayConfig) ProtocolProfile {
	return ProtocolProfile{
		Name:          "legacy",
		Major:         cfg.MajorVersion(),
		Strategy:      cfg.Strategy(),
		RequestFields: legacyRequestFields,
		ResponseFields: []canonicalField{
			field(FieldTPE),
			field(FieldDate),
			field(FieldAmount),
			field(FieldReference),
			field(FieldFreeText),
			literal(FieldVersion, cfg.Version()),
			field(FieldReturnCode),
		},
		ResponsePrefix:    FieldReturnPlus,
		Separator:         positionalSeparator,
		ResponseSeparator: legacyRespSeparator,
		ResponseRequired: []string{
			FieldReturnPlus, FieldTPE, FieldDate, FieldAmount, FieldReference, FieldFreeText, FieldReturnCode,
		},
	}
}

func extendedProfile(cfg *domain.GatewayConfig) ProtocolProfile {
	request := make([]canonicalField, 0, len(legacyRequestFields)+1+extendedPlaceholders)
	request = append(request, legacyRequestFields...)
	request = append(request, field(FieldEmail))
	for i := 0; i < extendedPlaceholders; i++ {
		request = append(request, literal("", ""))
	}

	return ProtocolProfile{
		Name:          "extended",
		Major:         cfg.MajorVersion(),
		Strategy:      cfg.Strategy(),
		RequestFields: request,
		ResponseFields: []canonicalField{
			field(FieldTPE),
			field(FieldDate),
			field(FieldAmount),
			field(FieldReference),
			field(FieldFreeText),
			literal(FieldVersion, extendedResponseToken),
			field(FieldReturnCode),
			field(FieldCVX),
			field(FieldValidity),
			field(FieldBrand),
			field(FieldStatus3DS),
			optionalField(FieldAuthNumber),
			optionalField(FieldRefusalMotive),
			optionalField(FieldCardOrigin),
			optionalField(FieldCardBIN),
			optionalField(FieldCardHash),
			optionalField(FieldClientIP),
			optionalField(FieldTransactionOrig),
			optionalField(FieldVERes),
			optionalField(FieldPARes),
		},
		Separator:         positionalSeparator,
		ResponseSeparator: positionalSeparator,
		ResponseRequired: []string{
			FieldTPE, FieldDate, FieldAmount, FieldReference, FieldFreeText, FieldReturnCode,
			FieldCVX, FieldValidity, FieldBrand, FieldStatus3DS,
		},
	}
}
