package paylink

import (
	"fmt"
	"strconv"
	"strings"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

const (
	tagFormat = "00"
	tagAmount = "54"
	tagCRC    = "63"
)

type tlv struct {
	tag   string
	value string
}

// elqrCodec works on EMV-style QR payloads: the base hash is the merchant's
// static QR string, the amount travels in tag 54 as minor units and tag 63
// carries a CRC16/CCITT-FALSE of everything before its value.
type elqrCodec struct{}

func (elqrCodec) Kind() CodecKind  { return CodecELQR }
func (elqrCodec) Invertible() bool { return true }

func (elqrCodec) Encode(baseHash string, amount entities.Money) (string, error) {
	if err := requirePositive(amount); err != nil {
		return "", err
	}
	fields, err := parseTLV(baseHash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrInvalidBaseHash, err)
	}
	if len(fields) == 0 || fields[0].tag != tagFormat {
		return "", fmt.Errorf("%w: payload must start with tag %s", domainerrors.ErrInvalidBaseHash, tagFormat)
	}

	kept := fields[:0]
	for _, f := range fields {
		if f.tag != tagAmount && f.tag != tagCRC {
			kept = append(kept, f)
		}
	}
	kept = insertBefore(kept, tlv{tag: tagAmount, value: strconv.FormatInt(amount.Minor(), 10)})

	var b strings.Builder
	for _, f := range kept {
		writeTLV(&b, f)
	}
	b.WriteString(tagCRC + "04")
	fmt.Fprintf(&b, "%04X", crc16CCITT(b.String()))
	return b.String(), nil
}

func (elqrCodec) Decode(hash string) (entities.Money, bool) {
	fields, err := parseTLV(hash)
	if err != nil || len(fields) < 2 {
		return entities.Zero, false
	}
	last := fields[len(fields)-1]
	if last.tag != tagCRC || len(last.value) != 4 {
		return entities.Zero, false
	}
	want, err := strconv.ParseUint(last.value, 16, 16)
	if err != nil || uint16(want) != crc16CCITT(hash[:len(hash)-4]) {
		return entities.Zero, false
	}
	for _, f := range fields {
		if f.tag != tagAmount {
			continue
		}
		minor, err := strconv.ParseInt(f.value, 10, 64)
		if err != nil || minor <= 0 {
			return entities.Zero, false
		}
		return entities.MoneyFromMinor(minor), true
	}
	return entities.Zero, false
}

func parseTLV(s string) ([]tlv, error) {
	var out []tlv
	for i := 0; i < len(s); {
		if len(s)-i < 4 {
			return nil, fmt.Errorf("truncated field header at %d", i)
		}
		tag := s[i : i+2]
		if _, err := strconv.Atoi(tag); err != nil {
			return nil, fmt.Errorf("non-numeric tag %q at %d", tag, i)
		}
		n, err := strconv.Atoi(s[i+2 : i+4])
		if err != nil {
			return nil, fmt.Errorf("non-numeric length at %d", i+2)
		}
		i += 4
		if n == 0 || len(s)-i < n {
			return nil, fmt.Errorf("field %s overruns payload", tag)
		}
		out = append(out, tlv{tag: tag, value: s[i : i+n]})
		i += n
	}
	return out, nil
}

// insertBefore keeps the operator's field order and places f ahead of the
// first field with a higher tag.
func insertBefore(fields []tlv, f tlv) []tlv {
	at := len(fields)
	for i, existing := range fields {
		if existing.tag > f.tag {
			at = i
			break
		}
	}
	fields = append(fields, tlv{})
	copy(fields[at+1:], fields[at:])
	fields[at] = f
	return fields
}

func writeTLV(b *strings.Builder, f tlv) {
	fmt.Fprintf(b, "%s%02d%s", f.tag, len(f.value), f.value)
}

// crc16CCITT is CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF), as EMV QR uses.
func crc16CCITT(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
