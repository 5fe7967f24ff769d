package usecases_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"autodeposit.backend/internal/domain/entities"
	"autodeposit.backend/internal/infrastructure/models"
	"autodeposit.backend/internal/infrastructure/repositories"
	"autodeposit.backend/internal/usecases"
	"autodeposit.backend/pkg/secretbox"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

var testSettings = entities.ReconcileSettings{
	Enabled:      true,
	PollInterval: 10 * time.Second,
	Tolerance:    entities.Zero,
	MaxWait:      2 * time.Hour,
	RequestTTL:   24 * time.Hour,
}

// testEnv wires the usecases over an in-memory sqlite database.
type testEnv struct {
	db       *gorm.DB
	requests *repositories.DepositRequestRepositoryImpl
	payments *repositories.IncomingPaymentRepositoryImpl
	banks    *repositories.BankConfigRepositoryImpl
	settings *usecases.SettingsUsecase
	matcher  *usecases.ReconciliationUsecase
	ingest   *usecases.IngestionUsecase
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, db.AutoMigrate(models.All()...), "migrate")
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	sealer, err := secretbox.New(testKeyHex)
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		requests: repositories.NewDepositRequestRepository(db),
		payments: repositories.NewIncomingPaymentRepository(db),
		banks:    repositories.NewBankConfigRepository(db, sealer),
	}
	env.settings = usecases.NewSettingsUsecase(repositories.NewSettingRepository(db), testSettings)
	env.matcher = usecases.NewReconciliationUsecase(env.requests, env.payments, env.banks, repositories.NewUnitOfWork(db), env.settings)
	normalizer, err := usecases.NewNormalizer(nil, func() time.Time { return t0 })
	require.NoError(t, err)
	env.ingest = usecases.NewIngestionUsecase(normalizer, env.payments, env.matcher)
	return env
}

func (e *testEnv) addRequest(t *testing.T, bank, amount string, createdAt time.Time) *entities.DepositRequest {
	t.Helper()
	req := &entities.DepositRequest{
		ID:          uuid.New(),
		RequesterID: "user-" + amount,
		Bank:        bank,
		Amount:      entities.MustMoney(amount),
		PaymentHash: "h",
		PaymentURL:  "https://pay.example/h",
		Status:      entities.DepositRequestStatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, e.requests.Create(context.Background(), req))
	return req
}

func (e *testEnv) addPayment(t *testing.T, bank, amount string, at time.Time) *entities.IncomingPayment {
	t.Helper()
	p := &entities.IncomingPayment{
		Amount:      entities.MustMoney(amount),
		Bank:        null.StringFrom(bank),
		PaymentDate: at,
		RawText:     bank + " " + amount,
		DedupKey:    uuid.NewString(),
	}
	require.NoError(t, e.payments.Create(context.Background(), p))
	return p
}

func (e *testEnv) status(t *testing.T, id uuid.UUID) entities.DepositRequestStatus {
	t.Helper()
	req, err := e.requests.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req.Status
}

func rawText(text, msgID string, at time.Time) entities.RawNotification {
	raw := entities.RawNotification{Text: text, SourceTimestamp: at}
	if msgID != "" {
		raw.TransportMessageID = null.StringFrom(msgID)
	}
	return raw
}
