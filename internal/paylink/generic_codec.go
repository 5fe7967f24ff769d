package paylink

import (
	"encoding/hex"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"

	"autodeposit.backend/internal/domain/entities"
)

// genericCodec is the fallback for banks without a bespoke scheme. The hash is
// a digest, so payments into these links can only be matched by bank and amount.
type genericCodec struct {
	bank string
	now  func() time.Time
}

func (genericCodec) Kind() CodecKind  { return CodecGeneric }
func (genericCodec) Invertible() bool { return false }

func (c genericCodec) Encode(_ string, amount entities.Money) (string, error) {
	if err := requirePositive(amount); err != nil {
		return "", err
	}
	ts := strconv.FormatInt(c.now().UTC().UnixNano(), 10)
	sum := sha3.Sum256([]byte(amount.String() + "|" + ts + "|" + c.bank))
	return hex.EncodeToString(sum[:]), nil
}

func (genericCodec) Decode(string) (entities.Money, bool) {
	return entities.Zero, false
}
