package usecases

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/blake2b"

	"autodeposit.backend/internal/domain/entities"
)

// Review reasons for parked payments
const (
	ReviewUnknownFormat     = "unrecognized notification format"
	ReviewAmountNotFound    = "amount not found"
	ReviewAmountUnparsable  = "amount unparsable"
	ReviewNonPositiveAmount = "non-positive amount"
	ReviewOutgoing          = "outgoing transaction"
)

// amountToken matches "1 500,00", "1,500.00", "1,500", "1500.00" and "1500",
// keeping a sign written directly before the digits.
const amountToken = `([-\x{2212}]?(?:\d{1,3}(?:[ \x{00a0}\x{202f}']\d{3})+(?:[.,]\d{1,2})?|\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:[.,]\d{1,2})?))`

// NotificationFormat describes one bank's notification text. Amount must have
// exactly one capture group.
type NotificationFormat struct {
	Bank   string
	Detect string
	Amount string
}

// DefaultNotificationFormats covers the banks the service ships codecs for.
var DefaultNotificationFormats = []NotificationFormat{
	{
		Bank:   "bakai",
		Detect: `(?i)bakai|бакай`,
		Amount: `(?i)(?:зачислено|поступление|пополнение)\D{0,20}?` + amountToken,
	},
	{
		Bank:   "mbank",
		Detect: `(?i)\bm-?bank\b|мбанк`,
		Amount: `(?i)(?:перевод|пополнение|получено)\D{0,20}?` + amountToken,
	},
	{
		Bank:   "optima",
		Detect: `(?i)\boptima\b|оптима`,
		Amount: `(?i)(?:сумма|amount)\D{0,10}?` + amountToken,
	},
	{
		Bank:   "demirbank",
		Detect: `(?i)\bdemir\s?bank\b|демир`,
		Amount: `(?i)(?:credit|зачисление|сумма)\D{0,20}?` + amountToken,
	},
}

// fallbackAmount is tried when a bank was detected but its own amount pattern
// missed, and only for texts that read as a credit.
var fallbackAmount = regexp.MustCompile(`(?i)` + amountToken + `\s*(?:kgs|сом|som)`)

var (
	debitMarker  = regexp.MustCompile(`(?i)списан|покупк|снят|расход|оплата\s+услуг|debit|purchase|withdraw`)
	creditMarker = regexp.MustCompile(`(?i)зачисл|поступ|пополн|получ|перевод|credit|incoming|received|\+\s*\d`)
	commaGroups  = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+$`)
)

type compiledFormat struct {
	bank   string
	detect *regexp.Regexp
	amount *regexp.Regexp
}

// Normalizer turns raw transport records into IncomingPayment rows. It never
// fails: records it cannot interpret are returned with a review reason.
type Normalizer struct {
	formats []compiledFormat
	now     func() time.Time
}

func NewNormalizer(formats []NotificationFormat, now func() time.Time) (*Normalizer, error) {
	if formats == nil {
		formats = DefaultNotificationFormats
	}
	if now == nil {
		now = time.Now
	}
	n := &Normalizer{now: now}
	for _, f := range formats {
		detect, err := regexp.Compile(f.Detect)
		if err != nil {
			return nil, fmt.Errorf("bank %s: detect pattern: %w", f.Bank, err)
		}
		amount, err := regexp.Compile(f.Amount)
		if err != nil {
			return nil, fmt.Errorf("bank %s: amount pattern: %w", f.Bank, err)
		}
		if amount.NumSubexp() < 1 {
			return nil, fmt.Errorf("bank %s: amount pattern has no capture group", f.Bank)
		}
		n.formats = append(n.formats, compiledFormat{bank: strings.ToLower(f.Bank), detect: detect, amount: amount})
	}
	return n, nil
}

func (n *Normalizer) Normalize(raw entities.RawNotification) *entities.IncomingPayment {
	paymentDate := raw.SourceTimestamp
	if paymentDate.IsZero() {
		paymentDate = n.now()
	}
	p := &entities.IncomingPayment{
		Amount:             entities.Zero,
		PaymentDate:        paymentDate.UTC(),
		RawText:            raw.Text,
		DedupKey:           DedupKey(raw),
		TransportMessageID: raw.TransportMessageID,
	}

	format, ok := n.detect(raw.Text)
	if !ok {
		p.ReviewReason = null.StringFrom(ReviewUnknownFormat)
		return p
	}
	p.Bank = null.StringFrom(format.bank)

	// Debits and purchases share the bank's sender but never fund a request.
	if debitMarker.MatchString(raw.Text) {
		p.ReviewReason = null.StringFrom(ReviewOutgoing)
		return p
	}

	token, ok := extractAmount(format.amount, raw.Text)
	if !ok && creditMarker.MatchString(raw.Text) {
		token, ok = extractAmount(fallbackAmount, raw.Text)
	}
	if !ok {
		p.ReviewReason = null.StringFrom(ReviewAmountNotFound)
		return p
	}
	amount, err := parseAmountToken(token)
	if err != nil {
		p.ReviewReason = null.StringFrom(ReviewAmountUnparsable)
		return p
	}
	p.Amount = amount
	if !amount.IsPositive() {
		p.ReviewReason = null.StringFrom(ReviewNonPositiveAmount)
	}
	return p
}

func (n *Normalizer) detect(text string) (compiledFormat, bool) {
	for _, f := range n.formats {
		if f.detect.MatchString(text) {
			return f, true
		}
	}
	return compiledFormat{}, false
}

func extractAmount(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

func parseAmountToken(token string) (entities.Money, error) {
	token = strings.Replace(token, "\u2212", "-", 1)
	if commaGroups.MatchString(token) || (strings.Contains(token, ",") && strings.Contains(token, ".")) {
		token = strings.ReplaceAll(token, ",", "")
	}
	return entities.ParseMoney(token)
}

// DedupKey fingerprints the underlying event of a transport record. The
// transport message id wins when present; otherwise the whitespace-normalized
// text and the timestamp truncated to the minute identify it.
func DedupKey(raw entities.RawNotification) string {
	var material string
	if raw.TransportMessageID.Valid && strings.TrimSpace(raw.TransportMessageID.String) != "" {
		material = "msg:" + strings.TrimSpace(raw.TransportMessageID.String)
	} else {
		text := strings.Join(strings.Fields(raw.Text), " ")
		ts := raw.SourceTimestamp.UTC().Truncate(time.Minute).Format(time.RFC3339)
		material = "txt:" + text + "|" + ts
	}
	sum := blake2b.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
