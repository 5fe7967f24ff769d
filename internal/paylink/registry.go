package paylink

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

// HashPlaceholder is the single substitution point in a bank URL template.
const HashPlaceholder = "{hash}"

// defaultCodecs are the banks with a bespoke scheme. Everything else falls back
// to the generic codec unless the operator names one explicitly.
var defaultCodecs = map[string]CodecKind{
	"bakai":     CodecTagged,
	"mbank":     CodecELQR,
	"optima":    CodecELQR,
	"demirbank": CodecELQR,
}

// Scheme is everything the builder needs for one bank.
type Scheme struct {
	Bank        string
	Codec       Codec
	Fallback    bool
	URLTemplate string
	MinAmount   entities.Money
	MaxAmount   entities.Money
	Enabled     bool
}

// Registry is the bank → scheme lookup table. It is built once at startup and
// updated in place when an operator edits a bank.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]Scheme
	now     func() time.Time
}

// NewRegistry builds the table from persisted bank configs. A bad config only
// disables that bank; its error is returned alongside the registry.
func NewRegistry(configs []*entities.BankConfig, now func() time.Time) (*Registry, map[string]error) {
	if now == nil {
		now = time.Now
	}
	r := &Registry{schemes: make(map[string]Scheme, len(configs)), now: now}
	failed := map[string]error{}
	for _, cfg := range configs {
		if err := r.Upsert(cfg); err != nil {
			failed[cfg.Bank] = err
		}
	}
	return r, failed
}

// NormalizeBank is the canonical form of a bank identifier.
func NormalizeBank(bank string) string {
	return strings.ToLower(strings.TrimSpace(bank))
}

// Upsert validates cfg and replaces the bank's scheme.
func (r *Registry) Upsert(cfg *entities.BankConfig) error {
	scheme, err := r.schemeFor(cfg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.schemes[scheme.Bank] = scheme
	r.mu.Unlock()
	return nil
}

// Remove drops a bank from the table.
func (r *Registry) Remove(bank string) {
	r.mu.Lock()
	delete(r.schemes, NormalizeBank(bank))
	r.mu.Unlock()
}

// Resolve returns the scheme for bank or ErrUnsupportedBank.
func (r *Registry) Resolve(bank string) (Scheme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemes[NormalizeBank(bank)]
	if !ok {
		return Scheme{}, domainerrors.ErrUnsupportedBank
	}
	return s, nil
}

// Banks lists configured bank identifiers.
func (r *Registry) Banks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemes))
	for b := range r.schemes {
		out = append(out, b)
	}
	return out
}

func (r *Registry) schemeFor(cfg *entities.BankConfig) (Scheme, error) {
	bank := NormalizeBank(cfg.Bank)
	if bank == "" {
		return Scheme{}, domainerrors.Validation("bank identifier is empty")
	}
	if strings.Count(cfg.URLTemplate, HashPlaceholder) != 1 {
		return Scheme{}, domainerrors.Configuration("bank %s: url template must contain exactly one %s", bank, HashPlaceholder)
	}
	if cfg.MaxAmount.IsPositive() && cfg.MaxAmount.Cmp(cfg.MinAmount) < 0 {
		return Scheme{}, domainerrors.Configuration("bank %s: max amount below min amount", bank)
	}

	kind, fallback := defaultCodecs[bank], false
	if cfg.Codec != "" {
		k, err := ParseCodecKind(cfg.Codec)
		if err != nil {
			return Scheme{}, err
		}
		kind = k
	}
	if kind == "" {
		kind, fallback = CodecGeneric, true
	}

	return Scheme{
		Bank:        bank,
		Codec:       r.codec(kind, bank),
		Fallback:    fallback,
		URLTemplate: cfg.URLTemplate,
		MinAmount:   cfg.MinAmount,
		MaxAmount:   cfg.MaxAmount,
		Enabled:     cfg.Enabled,
	}, nil
}

func (r *Registry) codec(kind CodecKind, bank string) Codec {
	switch kind {
	case CodecTagged:
		return taggedCodec{}
	case CodecELQR:
		return elqrCodec{}
	default:
		return genericCodec{bank: bank, now: r.now}
	}
}

// Check validates cfg without installing it: the template, the codec name and,
// when a base hash is set, that the codec accepts it.
func (r *Registry) Check(cfg *entities.BankConfig) error {
	scheme, err := r.schemeFor(cfg)
	if err != nil {
		return err
	}
	if cfg.BaseHash == "" {
		return nil
	}
	if _, err := scheme.Codec.Encode(cfg.BaseHash, entities.MoneyFromMinor(100)); err != nil {
		return fmt.Errorf("bank %s: %w", scheme.Bank, err)
	}
	return nil
}
