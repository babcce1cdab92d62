package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalops/meterbot/pkg/bot/state"
	"github.com/rentalops/meterbot/pkg/reminder"
	"github.com/rentalops/meterbot/pkg/rental"
	"github.com/rentalops/meterbot/pkg/storage"
)

const (
	ownerID  = int64(1)
	tenantID = int64(100)
)

var testNow = time.Date(2025, time.July, 10, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	sent     map[int64][]string
	photo    []byte
	sendErr  error
	photoErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sent:  make(map[int64][]string),
		photo: []byte("jpeg-bytes"),
	}
}

func (g *fakeGateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent[chatID] = append(g.sent[chatID], text)
	return nil
}

func (g *fakeGateway) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	if g.photoErr != nil {
		return nil, g.photoErr
	}
	return g.photo, nil
}

// last returns the most recent message sent to chatID.
func (g *fakeGateway) last(t *testing.T, chatID int64) string {
	t.Helper()
	require.NotEmpty(t, g.sent[chatID], "no messages sent to chat %d", chatID)
	return g.sent[chatID][len(g.sent[chatID])-1]
}

type fakeReceiptStore struct {
	keys      []string
	uploadErr error
}

func (s *fakeReceiptStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.keys = append(s.keys, key)
	return "https://receipts.example.com/" + key, nil
}

type fixture struct {
	repo     *storage.Memory
	sessions *state.MemoryStore
	gateway  *fakeGateway
	receipts *fakeReceiptStore
	ctrl     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := storage.NewMemory()
	repo.AddTenant(&rental.Tenant{ID: ownerID, Name: "Olga", Unit: "office", IsOwner: true})
	repo.AddTenant(&rental.Tenant{ID: tenantID, Name: "Ivan", Unit: "apt 3"})
	repo.AddMeter(&rental.Meter{
		TenantID: tenantID, Name: "electricity", Type: rental.MeterTypeElectricity,
		Rate: decimal.RequireFromString("5.5"), Unit: "kWh",
	})
	repo.AddMeter(&rental.Meter{
		TenantID: tenantID, Name: "cold water", Type: rental.MeterTypeWater,
		Rate: decimal.RequireFromString("40"), Unit: "m3",
	})
	repo.SetSetting(rental.SettingPaymentDetails, "Card 1234 5678")

	gateway := newFakeGateway()
	receipts := &fakeReceiptStore{}
	sessions := state.NewMemoryStore()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	sender := reminder.NewSender(repo, gateway, nil, log)
	sender.SetClock(func() time.Time { return testNow })

	ctrl := NewController(repo, receipts, sessions, gateway, sender, nil, log, ownerID)
	ctrl.SetClock(func() time.Time { return testNow })

	return &fixture{repo: repo, sessions: sessions, gateway: gateway, receipts: receipts, ctrl: ctrl}
}

func (f *fixture) phase(t *testing.T, id int64) state.Phase {
	t.Helper()
	session, err := f.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	return session.Phase
}

func TestHandleUpdateUnregisteredTenant(t *testing.T) {
	f := newFixture(t)

	f.ctrl.HandleUpdate(context.Background(), Update{TenantID: 999, Command: "start"})

	assert.Contains(t, f.gateway.last(t, 999), "not registered")
}

func TestReadingsFlowHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	assert.Equal(t, state.AwaitingMeterSelection, f.phase(t, tenantID))
	menu := f.gateway.last(t, tenantID)
	assert.Contains(t, menu, "1. electricity")
	assert.Contains(t, menu, "2. cold water")

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "1"})
	assert.Equal(t, state.AwaitingReadingValue, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "Previous reading: 0 kWh")

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "100"})
	// First meter saved, flow advances to the remaining meter without
	// another selection step.
	assert.Equal(t, state.AwaitingReadingValue, f.phase(t, tenantID))
	messages := f.gateway.sent[tenantID]
	assert.Contains(t, messages[len(messages)-2], "consumption 100 kWh, amount 550.00")
	assert.Contains(t, messages[len(messages)-1], "Meter: cold water")

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "12,5"})
	assert.Equal(t, state.AwaitingReceiptPhoto, f.phase(t, tenantID))
	summary := f.gateway.last(t, tenantID)
	assert.Contains(t, summary, "Amount due: 1050.00")
	assert.Contains(t, summary, "Card 1234 5678")

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, PhotoFileID: "file-1"})
	assert.Equal(t, state.Idle, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "2 reading(s) marked as paid")
	require.Len(t, f.receipts.keys, 1)
	assert.True(t, strings.HasPrefix(f.receipts.keys[0], fmt.Sprintf("receipts/%d/", tenantID)))

	readings, err := f.repo.ListReadings(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	for _, r := range readings {
		assert.True(t, r.Paid)
		assert.NotEmpty(t, r.ReceiptURL)
	}
}

func TestSelectMeterByName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "Cold Water"})

	assert.Equal(t, state.AwaitingReadingValue, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "Meter: cold water")
}

func TestSelectMeterUnknownChoiceReprompts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "7"})

	assert.Equal(t, state.AwaitingMeterSelection, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "don't know that meter")
}

func TestReceiveReadingRejectsNonNumeric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "1"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "about a hundred"})

	assert.Equal(t, state.AwaitingReadingValue, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "enter a number")

	readings, err := f.repo.ListReadings(ctx, tenantID)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestReceiveReadingRejectsDecrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.AppendReading(ctx, &rental.Reading{
		Date: testNow.AddDate(0, -1, 0), TenantID: tenantID, MeterName: "electricity",
		Current: decimal.RequireFromString("500"), Paid: true,
	}))

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "electricity"})
	assert.Contains(t, f.gateway.last(t, tenantID), "Previous reading: 500")

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "499"})

	assert.Equal(t, state.AwaitingReadingValue, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "less than the previous reading 500")

	readings, err := f.repo.ListReadings(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, readings, 1, "the rejected value must not be persisted")
}

func TestCommandAbortsFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "1"})
	require.Equal(t, state.AwaitingReadingValue, f.phase(t, tenantID))

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "help"})

	assert.Equal(t, state.Idle, f.phase(t, tenantID))
	readings, err := f.repo.ListReadings(ctx, tenantID)
	require.NoError(t, err)
	assert.Empty(t, readings, "aborted flow must not persist anything")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)

	f.ctrl.HandleUpdate(context.Background(), Update{TenantID: tenantID, Command: "frobnicate"})

	assert.Contains(t, f.gateway.last(t, tenantID), "Unknown command")
}

func TestPhotoOutsideFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("nothing unpaid", func(t *testing.T) {
		f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, PhotoFileID: "file-1"})
		assert.Contains(t, f.gateway.last(t, tenantID), "wasn't expecting a photo")
		assert.Empty(t, f.receipts.keys)
	})

	t.Run("unpaid readings recover", func(t *testing.T) {
		require.NoError(t, f.repo.AppendReading(ctx, &rental.Reading{
			Date: testNow, TenantID: tenantID, MeterName: "electricity",
			Current: decimal.RequireFromString("100"),
			Amount:  decimal.RequireFromString("550"),
		}))

		f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, PhotoFileID: "file-2"})

		assert.Contains(t, f.gateway.last(t, tenantID), "1 reading(s) marked as paid")
		readings, err := f.repo.ListReadings(ctx, tenantID)
		require.NoError(t, err)
		require.Len(t, readings, 1)
		assert.True(t, readings[0].Paid)
	})
}

func TestPhotoDuringMeterSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, PhotoFileID: "file-1"})

	assert.Equal(t, state.AwaitingMeterSelection, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "finish entering your readings")
}

func TestReceiptUploadFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Command: "readings"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "1"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "100"})
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, Text: "10"})
	require.Equal(t, state.AwaitingReceiptPhoto, f.phase(t, tenantID))

	f.receipts.uploadErr = errors.New("bucket unavailable")
	f.ctrl.HandleUpdate(ctx, Update{TenantID: tenantID, PhotoFileID: "file-1"})

	// The tenant can retry by sending the photo again.
	assert.Equal(t, state.AwaitingReceiptPhoto, f.phase(t, tenantID))
	assert.Contains(t, f.gateway.last(t, tenantID), "try again")
}

func TestReadingsWithoutMeters(t *testing.T) {
	f := newFixture(t)
	f.repo.AddTenant(&rental.Tenant{ID: 200, Name: "Petr", Unit: "apt 4"})

	f.ctrl.HandleUpdate(context.Background(), Update{TenantID: 200, Command: "readings"})

	assert.Equal(t, state.Idle, f.phase(t, 200))
	assert.Contains(t, f.gateway.last(t, 200), "no meters configured")
}

func TestFreeTextWhileIdle(t *testing.T) {
	f := newFixture(t)

	f.ctrl.HandleUpdate(context.Background(), Update{TenantID: tenantID, Text: "hello"})

	assert.Contains(t, f.gateway.last(t, tenantID), "/help")
}
