package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rentalops/meterbot/pkg/billing"
	"github.com/rentalops/meterbot/pkg/observability"
	"github.com/rentalops/meterbot/pkg/reminder"
	"github.com/rentalops/meterbot/pkg/rental"
	"github.com/rentalops/meterbot/pkg/bot/state"
	"github.com/rentalops/meterbot/pkg/storage"
	"github.com/rentalops/meterbot/pkg/storage/receipts"
)

// ErrPermissionDenied marks an owner-only command used by a regular
// tenant.
var ErrPermissionDenied = errors.New("permission denied")

const retryReply = "Something went wrong on our side. Please try again in a minute."

// tracer covers update handling; spans wrap the Sheets, object-store and
// Telegram round trips one update can involve. No-op unless a tracer
// provider is installed at startup.
var tracer = otel.Tracer("meterbot/bot")

// Controller routes inbound updates through the per-tenant conversation
// state machine and the command surface. All persistence goes through
// the injected repository, all state through the injected session store.
type Controller struct {
	repo      storage.Repository
	receipts  ReceiptStore
	sessions  state.Store
	gateway   Gateway
	reminders *reminder.Sender
	metrics   *observability.Metrics
	log       *logrus.Logger
	ownerID   int64
	now       func() time.Time

	mu          sync.Mutex
	tenantLocks map[int64]*sync.Mutex
}

// NewController creates the conversation controller.
func NewController(
	repo storage.Repository,
	receipts ReceiptStore,
	sessions state.Store,
	gateway Gateway,
	reminders *reminder.Sender,
	metrics *observability.Metrics,
	log *logrus.Logger,
	ownerID int64,
) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{
		repo:        repo,
		receipts:    receipts,
		sessions:    sessions,
		gateway:     gateway,
		reminders:   reminders,
		metrics:     metrics,
		log:         log,
		ownerID:     ownerID,
		now:         time.Now,
		tenantLocks: make(map[int64]*sync.Mutex),
	}
}

// SetClock overrides the controller's clock. Test hook.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// lockTenant serializes update handling per tenant. Different tenants
// proceed independently.
func (c *Controller) lockTenant(tenantID int64) func() {
	c.mu.Lock()
	lock, ok := c.tenantLocks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		c.tenantLocks[tenantID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// HandleUpdate processes one inbound update to completion. Errors are
// handled internally: the tenant gets a reply and the error is logged;
// nothing is returned to the polling loop.
func (c *Controller) HandleUpdate(ctx context.Context, update Update) {
	ctx, span := tracer.Start(ctx, "bot.handle_update")
	span.SetAttributes(attribute.Int64("tenant.id", update.TenantID))
	defer span.End()

	defer c.lockTenant(update.TenantID)()

	tenant, err := c.repo.GetTenant(ctx, update.TenantID)
	if errors.Is(err, storage.ErrNotFound) {
		c.reply(ctx, update.TenantID, "You are not registered with this bot. Ask the owner to add you.")
		return
	}
	if err != nil {
		c.upstreamError(ctx, update.TenantID, err, "failed to look up tenant")
		return
	}

	switch {
	case update.Command != "":
		c.countUpdate("command")
		c.handleCommand(ctx, tenant, update.Command, update.Args)
	case update.PhotoFileID != "":
		c.countUpdate("photo")
		c.handlePhoto(ctx, tenant, update.PhotoFileID)
	default:
		c.countUpdate("text")
		c.handleText(ctx, tenant, update.Text)
	}
}

// handleCommand aborts any in-progress flow, then dispatches. A command
// issued mid-flow discards not-yet-persisted input immediately.
func (c *Controller) handleCommand(ctx context.Context, tenant *rental.Tenant, command, args string) {
	session, err := c.sessions.Get(ctx, tenant.ID)
	if err != nil {
		c.upstreamError(ctx, tenant.ID, err, "failed to load session")
		return
	}
	if session.Phase != state.Idle {
		if err := c.sessions.Clear(ctx, tenant.ID); err != nil {
			c.upstreamError(ctx, tenant.ID, err, "failed to clear session")
			return
		}
	}

	var cmdErr error
	switch command {
	case "start":
		cmdErr = c.cmdStart(ctx, tenant)
	case "help":
		cmdErr = c.cmdHelp(ctx, tenant)
	case "readings":
		cmdErr = c.cmdReadings(ctx, tenant)
	case "status":
		cmdErr = c.cmdStatus(ctx, tenant)
	case "all_status":
		cmdErr = c.ownerOnly(tenant, func() error { return c.cmdAllStatus(ctx, tenant) })
	case "unpaid":
		cmdErr = c.ownerOnly(tenant, func() error { return c.cmdUnpaid(ctx, tenant) })
	case "remind":
		cmdErr = c.ownerOnly(tenant, func() error { return c.cmdRemind(ctx, tenant, args) })
	case "remind_all":
		cmdErr = c.ownerOnly(tenant, func() error { return c.cmdRemindAll(ctx, tenant) })
	default:
		c.reply(ctx, tenant.ID, "Unknown command. Send /help for the list of commands.")
		return
	}

	if errors.Is(cmdErr, ErrPermissionDenied) {
		c.reply(ctx, tenant.ID, "This command is only available to the owner.")
		return
	}
	if cmdErr != nil {
		c.upstreamError(ctx, tenant.ID, cmdErr, "command failed")
	}
}

func (c *Controller) ownerOnly(tenant *rental.Tenant, fn func() error) error {
	if !tenant.IsOwner && tenant.ID != c.ownerID {
		return ErrPermissionDenied
	}
	return fn()
}

// cmdReadings starts the reading-submission flow.
func (c *Controller) cmdReadings(ctx context.Context, tenant *rental.Tenant) error {
	meters, err := c.repo.ListMeters(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if len(meters) == 0 {
		c.reply(ctx, tenant.ID, "You have no meters configured. Ask the owner to add them.")
		return nil
	}

	names := make([]string, 0, len(meters))
	for _, m := range meters {
		names = append(names, m.Name)
	}

	session := &state.Session{Phase: state.AwaitingMeterSelection, Pending: names}
	if err := c.sessions.Put(ctx, tenant.ID, session); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("Let's submit your meter readings. Which meter first?\n")
	for i, m := range meters {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, m.Name, m.Type)
	}
	b.WriteString("\nReply with the number or the meter name.")
	c.reply(ctx, tenant.ID, b.String())
	return nil
}

// handleText advances the flow according to the current phase. Free text
// outside a flow just gets a hint.
func (c *Controller) handleText(ctx context.Context, tenant *rental.Tenant, text string) {
	session, err := c.sessions.Get(ctx, tenant.ID)
	if err != nil {
		c.upstreamError(ctx, tenant.ID, err, "failed to load session")
		return
	}

	switch session.Phase {
	case state.AwaitingMeterSelection:
		err = c.selectMeter(ctx, tenant, session, text)
	case state.AwaitingReadingValue:
		err = c.receiveReading(ctx, tenant, session, text)
	case state.AwaitingReceiptPhoto:
		c.reply(ctx, tenant.ID, "Please send the receipt as a photo, not text.")
	default:
		c.reply(ctx, tenant.ID, "Send /help to see what I can do.")
	}

	if err != nil {
		c.upstreamError(ctx, tenant.ID, err, "reading flow failed")
	}
}

// selectMeter resolves the tenant's choice by list position or name and
// prompts for its value. An unknown choice re-prompts without changing
// state.
func (c *Controller) selectMeter(ctx context.Context, tenant *rental.Tenant, session *state.Session, text string) error {
	choice := strings.TrimSpace(text)

	name := ""
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(session.Pending) {
		name = session.Pending[n-1]
	} else {
		for _, pending := range session.Pending {
			if strings.EqualFold(pending, choice) {
				name = pending
				break
			}
		}
	}
	if name == "" {
		c.reply(ctx, tenant.ID, "I don't know that meter. Reply with a number from the list or the meter name.")
		return nil
	}

	session.Current = name
	session.Pending = remove(session.Pending, name)
	session.Phase = state.AwaitingReadingValue
	if err := c.sessions.Put(ctx, tenant.ID, session); err != nil {
		return err
	}

	return c.promptReading(ctx, tenant, name)
}

// promptReading asks for the current value of a meter, showing the
// previous reading it will be validated against.
func (c *Controller) promptReading(ctx context.Context, tenant *rental.Tenant, meterName string) error {
	meter, err := c.meterByName(ctx, tenant.ID, meterName)
	if err != nil {
		return err
	}
	previous, err := c.previousValue(ctx, tenant.ID, meterName)
	if err != nil {
		return err
	}

	c.reply(ctx, tenant.ID, fmt.Sprintf(
		"Meter: %s\nPrevious reading: %s %s\n\nEnter the current reading:",
		meter.Name, previous.String(), meter.Unit))
	return nil
}

// receiveReading validates and persists one reading value, then advances
// to the next pending meter or to the receipt step.
func (c *Controller) receiveReading(ctx context.Context, tenant *rental.Tenant, session *state.Session, text string) error {
	value, err := parseValue(text)
	if err != nil {
		c.reply(ctx, tenant.ID, "Please enter a number, e.g. 12345 or 123.45.")
		return nil
	}

	meter, err := c.meterByName(ctx, tenant.ID, session.Current)
	if err != nil {
		return err
	}
	previous, err := c.previousValue(ctx, tenant.ID, meter.Name)
	if err != nil {
		return err
	}

	charge, err := billing.Compute(previous, value, meter.Rate)
	var invalid *billing.InvalidReadingError
	if errors.As(err, &invalid) {
		c.reply(ctx, tenant.ID, fmt.Sprintf(
			"The value %s is less than the previous reading %s. Please check and enter it again:",
			value.String(), previous.String()))
		return nil
	}
	if err != nil {
		return err
	}

	reading := &rental.Reading{
		Date:        c.now(),
		TenantID:    tenant.ID,
		MeterName:   meter.Name,
		Previous:    previous,
		Current:     value,
		Consumption: charge.Consumption,
		Amount:      charge.Amount,
	}
	if err := c.repo.AppendReading(ctx, reading); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.ReadingsSubmitted.Inc()
	}

	c.reply(ctx, tenant.ID, fmt.Sprintf(
		"Saved: %s, consumption %s %s, amount %s.",
		meter.Name, charge.Consumption.String(), meter.Unit, charge.Amount.StringFixed(2)))

	if len(session.Pending) > 0 {
		// Loop to the next meter in order.
		session.Current = session.Pending[0]
		session.Pending = session.Pending[1:]
		if err := c.sessions.Put(ctx, tenant.ID, session); err != nil {
			return err
		}
		return c.promptReading(ctx, tenant, session.Current)
	}

	session.Current = ""
	session.Phase = state.AwaitingReceiptPhoto
	if err := c.sessions.Put(ctx, tenant.ID, session); err != nil {
		return err
	}

	total, _, err := c.reminders.UnpaidAmount(ctx, tenant.ID)
	if err != nil {
		return err
	}
	details, err := c.repo.Setting(ctx, rental.SettingPaymentDetails)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("All readings submitted. Amount due: %s.", total.StringFixed(2))
	if details != "" {
		msg += "\n\nPayment details:\n" + details
	}
	msg += "\n\nAfter paying, send a photo of your receipt."
	c.reply(ctx, tenant.ID, msg)
	return nil
}

// handlePhoto attaches a receipt. Photos are accepted in the receipt
// phase, and also while Idle when unpaid readings exist, which is the
// recovery path after a crash or a payment made outside the flow.
func (c *Controller) handlePhoto(ctx context.Context, tenant *rental.Tenant, fileID string) {
	session, err := c.sessions.Get(ctx, tenant.ID)
	if err != nil {
		c.upstreamError(ctx, tenant.ID, err, "failed to load session")
		return
	}

	switch session.Phase {
	case state.AwaitingReceiptPhoto:
		if err := c.attachReceipt(ctx, tenant, fileID); err != nil {
			c.upstreamError(ctx, tenant.ID, err, "failed to attach receipt")
			return
		}
		if err := c.sessions.Clear(ctx, tenant.ID); err != nil {
			c.upstreamError(ctx, tenant.ID, err, "failed to clear session")
		}
	case state.Idle:
		_, unpaid, err := c.reminders.UnpaidAmount(ctx, tenant.ID)
		if err != nil {
			c.upstreamError(ctx, tenant.ID, err, "failed to check unpaid readings")
			return
		}
		if unpaid == 0 {
			c.reply(ctx, tenant.ID, "I wasn't expecting a photo. Send /help to see what I can do.")
			return
		}
		if err := c.attachReceipt(ctx, tenant, fileID); err != nil {
			c.upstreamError(ctx, tenant.ID, err, "failed to attach receipt")
		}
	default:
		c.reply(ctx, tenant.ID, "Please finish entering your readings first.")
	}
}

// attachReceipt uploads the photo and marks the tenant's unpaid readings
// paid with the resulting URL.
func (c *Controller) attachReceipt(ctx context.Context, tenant *rental.Tenant, fileID string) error {
	data, err := c.gateway.DownloadPhoto(ctx, fileID)
	if err != nil {
		return err
	}

	url, err := c.receipts.Upload(ctx, receipts.Key(tenant.ID, c.now()), data, "image/jpeg")
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.ReceiptsUploaded.Inc()
	}

	updated, err := c.repo.MarkPaid(ctx, tenant.ID, url)
	if err != nil {
		return err
	}

	if updated == 0 {
		c.reply(ctx, tenant.ID, "Receipt received, but there was nothing left to pay.")
		return nil
	}
	c.reply(ctx, tenant.ID, fmt.Sprintf("Receipt received, %d reading(s) marked as paid. Thank you!", updated))
	return nil
}

func (c *Controller) meterByName(ctx context.Context, tenantID int64, name string) (*rental.Meter, error) {
	meters, err := c.repo.ListMeters(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, m := range meters {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("meter %q not found for tenant %d", name, tenantID)
}

// previousValue is the current value of the meter's most recent reading,
// or zero for a first reading.
func (c *Controller) previousValue(ctx context.Context, tenantID int64, meterName string) (decimal.Decimal, error) {
	last, err := c.repo.LastReading(ctx, tenantID, meterName)
	if err != nil {
		return decimal.Zero, err
	}
	if last == nil {
		return decimal.Zero, nil
	}
	return last.Current, nil
}

// reply sends a message, logging delivery failures. Replies are best
// effort; the flow state is already persisted by the time we reply.
func (c *Controller) reply(ctx context.Context, chatID int64, text string) {
	if err := c.gateway.SendMessage(ctx, chatID, text); err != nil {
		c.log.WithError(err).WithField("chat_id", chatID).Error("failed to send reply")
		if c.metrics != nil {
			c.metrics.MessageSendErrors.Inc()
		}
		return
	}
	if c.metrics != nil {
		c.metrics.MessagesSentTotal.Inc()
	}
}

func (c *Controller) upstreamError(ctx context.Context, chatID int64, err error, msg string) {
	c.log.WithError(err).WithField("chat_id", chatID).Error(msg)
	if c.metrics != nil {
		c.metrics.UpdateErrorsTotal.Inc()
	}
	c.reply(ctx, chatID, retryReply)
}

func (c *Controller) countUpdate(kind string) {
	if c.metrics != nil {
		c.metrics.UpdatesTotal.WithLabelValues(kind).Inc()
	}
}

// parseValue parses a reading value, accepting a comma as the decimal
// separator.
func parseValue(text string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(text), ",", "."))
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}
