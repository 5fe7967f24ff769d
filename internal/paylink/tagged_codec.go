package paylink

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

const (
	taggedVersion     = 1
	taggedMaxBaseLen  = 128
	taggedTrailerSize = 8 + 4
)

// taggedCodec lays out
//
//	u8 version | u8 len(base) | base | u64be minor units | u32be crc32(prefix)
//
// and encodes the bytes as unpadded base64url.
type taggedCodec struct{}

func (taggedCodec) Kind() CodecKind  { return CodecTagged }
func (taggedCodec) Invertible() bool { return true }

func (taggedCodec) Encode(baseHash string, amount entities.Money) (string, error) {
	if err := validateTaggedBase(baseHash); err != nil {
		return "", err
	}
	if err := requirePositive(amount); err != nil {
		return "", err
	}

	buf := make([]byte, 0, 2+len(baseHash)+taggedTrailerSize)
	buf = append(buf, taggedVersion, byte(len(baseHash)))
	buf = append(buf, baseHash...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(amount.Minor()))
	buf = binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (taggedCodec) Decode(hash string) (entities.Money, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(hash)
	if err != nil || len(raw) < 2+1+taggedTrailerSize || raw[0] != taggedVersion {
		return entities.Zero, false
	}
	baseLen := int(raw[1])
	if len(raw) != 2+baseLen+taggedTrailerSize {
		return entities.Zero, false
	}
	body, sum := raw[:len(raw)-4], binary.BigEndian.Uint32(raw[len(raw)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return entities.Zero, false
	}
	minor := binary.BigEndian.Uint64(body[2+baseLen:])
	if minor == 0 || minor > 1<<62 {
		return entities.Zero, false
	}
	return entities.MoneyFromMinor(int64(minor)), true
}

func validateTaggedBase(baseHash string) error {
	if baseHash == "" || len(baseHash) > taggedMaxBaseLen {
		return fmt.Errorf("%w: length must be 1..%d", domainerrors.ErrInvalidBaseHash, taggedMaxBaseLen)
	}
	for i := 0; i < len(baseHash); i++ {
		if c := baseHash[i]; c <= 0x20 || c >= 0x7f {
			return fmt.Errorf("%w: unexpected byte at %d", domainerrors.ErrInvalidBaseHash, i)
		}
	}
	return nil
}
