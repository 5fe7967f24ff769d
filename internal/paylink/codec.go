// Package paylink turns a bank's operator-configured base hash and an amount
// into a customer-facing payment link, and recovers amounts from links whose
// codec is invertible.
package paylink

import (
	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

// CodecKind names one of the supported hash layouts.
type CodecKind string

const (
	CodecTagged  CodecKind = "tagged"
	CodecELQR    CodecKind = "elqr"
	CodecGeneric CodecKind = "generic"
)

// Codec encodes an amount into a payment hash derived from a base hash.
// Decode returns ok=false when the codec is not invertible or the hash is not
// one it produced.
type Codec interface {
	Kind() CodecKind
	Invertible() bool
	Encode(baseHash string, amount entities.Money) (string, error)
	Decode(hash string) (entities.Money, bool)
}

// ParseCodecKind validates an operator-supplied codec selector.
func ParseCodecKind(s string) (CodecKind, error) {
	switch k := CodecKind(s); k {
	case CodecTagged, CodecELQR, CodecGeneric:
		return k, nil
	}
	return "", domainerrors.Configuration("unknown codec %q", s)
}

func requirePositive(amount entities.Money) error {
	if !amount.IsPositive() {
		return domainerrors.ErrInvalidAmount
	}
	return nil
}
