package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rentalops/meterbot/pkg/observability"
	"github.com/rentalops/meterbot/pkg/rental"
	"github.com/rentalops/meterbot/pkg/storage"
)

// Messenger delivers a text message to a chat. Satisfied by the Telegram
// gateway in pkg/bot.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Sender builds and delivers reminder messages. The same construction
// logic backs the scheduled runs and the owner's on-demand /remind
// commands; only the scheduled path applies the date gate.
type Sender struct {
	repo      storage.Repository
	messenger Messenger
	metrics   *observability.Metrics
	log       *logrus.Logger
	now       func() time.Time
}

// NewSender creates a reminder sender.
func NewSender(repo storage.Repository, messenger Messenger, metrics *observability.Metrics, log *logrus.Logger) *Sender {
	if log == nil {
		log = logrus.New()
	}
	return &Sender{
		repo:      repo,
		messenger: messenger,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the sender's clock. Test hook.
func (s *Sender) SetClock(now func() time.Time) { s.now = now }

// RunDaily evaluates both trigger rules against the current date and
// sends whichever reminders are due. Called once per day by the cron
// scheduler.
func (s *Sender) RunDaily(ctx context.Context) {
	now := s.now()

	if ReadingsDue(now) {
		sent, failed := s.SendReadingReminders(ctx)
		s.log.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("readings reminder run complete")
	}
	if PaymentDue(now) {
		sent, failed := s.SendPaymentReminders(ctx)
		s.log.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("payment reminder run complete")
	}
}

// SendReadingReminders messages every non-owner tenant that is missing a
// reading for the current billing period. A delivery failure for one
// tenant is logged and does not abort the rest of the batch.
func (s *Sender) SendReadingReminders(ctx context.Context) (sent, failed int) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list tenants for readings reminders")
		return 0, 0
	}

	now := s.now()
	for _, tenant := range tenants {
		if tenant.IsOwner {
			continue
		}

		missing, err := s.MissingMeters(ctx, tenant.ID, now)
		if err != nil {
			s.log.WithError(err).WithField("tenant_id", tenant.ID).Error("failed to compute missing readings")
			failed++
			continue
		}
		if len(missing) == 0 {
			continue
		}

		if err := s.messenger.SendMessage(ctx, tenant.ID, readingsMessage(missing)); err != nil {
			s.log.WithError(err).WithField("tenant_id", tenant.ID).Error("failed to deliver readings reminder")
			s.countReminder("readings", false)
			failed++
			continue
		}
		s.countReminder("readings", true)
		sent++
	}
	return sent, failed
}

// SendPaymentReminders messages every non-owner tenant holding at least
// one unpaid reading. Failures are isolated per recipient.
func (s *Sender) SendPaymentReminders(ctx context.Context) (sent, failed int) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list tenants for payment reminders")
		return 0, 0
	}

	details, err := s.repo.Setting(ctx, rental.SettingPaymentDetails)
	if err != nil {
		s.log.WithError(err).Error("failed to read payment details setting")
	}

	for _, tenant := range tenants {
		if tenant.IsOwner {
			continue
		}

		total, count, err := s.UnpaidAmount(ctx, tenant.ID)
		if err != nil {
			s.log.WithError(err).WithField("tenant_id", tenant.ID).Error("failed to compute unpaid amount")
			failed++
			continue
		}
		if count == 0 {
			continue
		}

		if err := s.messenger.SendMessage(ctx, tenant.ID, paymentMessage(total, details)); err != nil {
			s.log.WithError(err).WithField("tenant_id", tenant.ID).Error("failed to deliver payment reminder")
			s.countReminder("payment", false)
			failed++
			continue
		}
		s.countReminder("payment", true)
		sent++
	}
	return sent, failed
}

// RemindTenant sends the applicable reminder(s) to a single tenant on
// demand, bypassing the date gate. Returns false when nothing is due.
func (s *Sender) RemindTenant(ctx context.Context, tenantID int64) (bool, error) {
	if _, err := s.repo.GetTenant(ctx, tenantID); err != nil {
		return false, err
	}

	delivered := false

	missing, err := s.MissingMeters(ctx, tenantID, s.now())
	if err != nil {
		return false, err
	}
	if len(missing) > 0 {
		if err := s.messenger.SendMessage(ctx, tenantID, readingsMessage(missing)); err != nil {
			return false, fmt.Errorf("failed to deliver readings reminder: %w", err)
		}
		delivered = true
	}

	total, count, err := s.UnpaidAmount(ctx, tenantID)
	if err != nil {
		return delivered, err
	}
	if count > 0 {
		details, err := s.repo.Setting(ctx, rental.SettingPaymentDetails)
		if err != nil {
			return delivered, err
		}
		if err := s.messenger.SendMessage(ctx, tenantID, paymentMessage(total, details)); err != nil {
			return delivered, fmt.Errorf("failed to deliver payment reminder: %w", err)
		}
		delivered = true
	}

	return delivered, nil
}

// MissingMeters returns the names of the tenant's meters with no reading
// in at's billing period (calendar month).
func (s *Sender) MissingMeters(ctx context.Context, tenantID int64, at time.Time) ([]string, error) {
	meters, err := s.repo.ListMeters(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	readings, err := s.repo.ListReadings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	submitted := make(map[string]bool)
	for _, r := range readings {
		if r.InPeriod(at) {
			submitted[r.MeterName] = true
		}
	}

	var missing []string
	for _, m := range meters {
		if !submitted[m.Name] {
			missing = append(missing, m.Name)
		}
	}
	return missing, nil
}

// UnpaidAmount returns the tenant's total unpaid amount and the number of
// unpaid readings it is summed over.
func (s *Sender) UnpaidAmount(ctx context.Context, tenantID int64) (decimal.Decimal, int, error) {
	readings, err := s.repo.ListReadings(ctx, tenantID)
	if err != nil {
		return decimal.Zero, 0, err
	}

	total := decimal.Zero
	count := 0
	for _, r := range readings {
		if !r.Paid {
			total = total.Add(r.Amount)
			count++
		}
	}
	return total, count, nil
}

func (s *Sender) countReminder(kind string, ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.RemindersSentTotal.WithLabelValues(kind).Inc()
	} else {
		s.metrics.ReminderErrorsTotal.WithLabelValues(kind).Inc()
	}
}

func readingsMessage(missing []string) string {
	return fmt.Sprintf(
		"Reminder: please submit your meter readings.\n\n"+
			"Waiting on: %s\n\n"+
			"Send /readings to begin.",
		strings.Join(missing, ", "))
}

func paymentMessage(total decimal.Decimal, details string) string {
	if details == "" {
		details = "payment details not configured"
	}
	return fmt.Sprintf(
		"Payment reminder.\n\n"+
			"Amount due: %s\n\n"+
			"Payment details:\n%s\n\n"+
			"After paying, send a photo of your receipt.",
		total.StringFixed(2), details)
}
