package paylink

import (
	"fmt"
	"net/url"
	"strings"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

// Link is a generated payment target.
type Link struct {
	URL        string    `json:"url"`
	Hash       string    `json:"hash"`
	Codec      CodecKind `json:"codec"`
	Invertible bool      `json:"invertible"`
	// Fallback is set when the bank has no bespoke scheme and the generic
	// digest was used.
	Fallback bool `json:"fallback"`
}

// Builder generates payment links from the registry.
type Builder struct {
	registry *Registry
}

func NewBuilder(registry *Registry) *Builder {
	return &Builder{registry: registry}
}

// BuildLink returns the customer-facing URL and the raw hash embedded in it.
func (b *Builder) BuildLink(bankID string, amount entities.Money, baseHash string) (string, string, error) {
	link, err := b.Build(bankID, amount, baseHash)
	if err != nil {
		return "", "", err
	}
	return link.URL, link.Hash, nil
}

// Build is BuildLink with the codec details callers need to know whether the
// hash can be decoded later.
func (b *Builder) Build(bankID string, amount entities.Money, baseHash string) (*Link, error) {
	scheme, err := b.registry.Resolve(bankID)
	if err != nil {
		return nil, err
	}
	if !scheme.Enabled {
		return nil, fmt.Errorf("%s: %w", scheme.Bank, domainerrors.ErrBankDisabled)
	}
	if err := checkRange(scheme, amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(baseHash) == "" {
		return nil, domainerrors.Configuration("bank %s has no base hash", scheme.Bank)
	}

	hash, err := scheme.Codec.Encode(baseHash, amount)
	if err != nil {
		return nil, fmt.Errorf("encode %s hash: %w", scheme.Bank, err)
	}
	return &Link{
		URL:        strings.Replace(scheme.URLTemplate, HashPlaceholder, url.PathEscape(hash), 1),
		Hash:       hash,
		Codec:      scheme.Codec.Kind(),
		Invertible: scheme.Codec.Invertible(),
		Fallback:   scheme.Fallback,
	}, nil
}

// DecodeHash recovers the amount from a hash generated for bankID.
func (b *Builder) DecodeHash(bankID, hash string) (entities.Money, bool) {
	scheme, err := b.registry.Resolve(bankID)
	if err != nil || !scheme.Codec.Invertible() {
		return entities.Zero, false
	}
	return scheme.Codec.Decode(hash)
}

func checkRange(scheme Scheme, amount entities.Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", domainerrors.ErrAmountOutOfRange, amount)
	}
	if amount.Cmp(scheme.MinAmount) < 0 {
		return fmt.Errorf("%w: %s below %s minimum %s", domainerrors.ErrAmountOutOfRange, amount, scheme.Bank, scheme.MinAmount)
	}
	if scheme.MaxAmount.IsPositive() && amount.Cmp(scheme.MaxAmount) > 0 {
		return fmt.Errorf("%w: %s above %s maximum %s", domainerrors.ErrAmountOutOfRange, amount, scheme.Bank, scheme.MaxAmount)
	}
	return nil
}

// SchemeInfo describes how links for one bank are produced.
type SchemeInfo struct {
	Bank       string    `json:"bank"`
	Codec      CodecKind `json:"codec"`
	Invertible bool      `json:"invertible"`
	Fallback   bool      `json:"fallback"`
	Enabled    bool      `json:"enabled"`
}

// Describe reports the codec selected for bank without building a link.
func (b *Builder) Describe(bankID string) (SchemeInfo, error) {
	scheme, err := b.registry.Resolve(bankID)
	if err != nil {
		return SchemeInfo{}, err
	}
	return SchemeInfo{
		Bank:       scheme.Bank,
		Codec:      scheme.Codec.Kind(),
		Invertible: scheme.Codec.Invertible(),
		Fallback:   scheme.Fallback,
		Enabled:    scheme.Enabled,
	}, nil
}
