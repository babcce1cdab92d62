package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rentalops/meterbot/pkg/rental"
)

const helpText = `Available commands:
/readings - submit this month's meter readings
/status - show your readings and balance for this month
/help - show this message

Owner commands:
/all_status - per-tenant submission and payment status
/unpaid - tenants with unpaid readings
/remind <tenant id> - nudge one tenant
/remind_all - nudge every tenant that is behind`

func (c *Controller) cmdStart(ctx context.Context, tenant *rental.Tenant) error {
	c.reply(ctx, tenant.ID, fmt.Sprintf(
		"Hello, %s! I collect meter readings and payment receipts for %s.\n\nSend /readings to submit readings, or /help for all commands.",
		tenant.Name, tenant.Unit))
	return nil
}

func (c *Controller) cmdHelp(ctx context.Context, tenant *rental.Tenant) error {
	c.reply(ctx, tenant.ID, helpText)
	return nil
}

// cmdStatus reports the tenant's own readings for the current month and
// their outstanding balance.
func (c *Controller) cmdStatus(ctx context.Context, tenant *rental.Tenant) error {
	now := c.now()

	readings, err := c.repo.ListReadings(ctx, tenant.ID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status for %s, %s:\n\n", tenant.Name, now.Format("January 2006"))

	count := 0
	for _, r := range readings {
		if !r.InPeriod(now) {
			continue
		}
		count++
		paid := "unpaid"
		if r.Paid {
			paid = "paid"
		}
		fmt.Fprintf(&b, "%s: %s -> %s, amount %s (%s)\n",
			r.MeterName, r.Previous.String(), r.Current.String(), r.Amount.StringFixed(2), paid)
	}
	if count == 0 {
		b.WriteString("No readings submitted this month. Send /readings to begin.\n")
	}

	missing, err := c.reminders.MissingMeters(ctx, tenant.ID, now)
	if err != nil {
		return err
	}
	if count > 0 && len(missing) > 0 {
		fmt.Fprintf(&b, "\nStill missing: %s.\n", strings.Join(missing, ", "))
	}

	total, unpaid, err := c.reminders.UnpaidAmount(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if unpaid > 0 {
		fmt.Fprintf(&b, "\nOutstanding balance: %s.", total.StringFixed(2))
	} else if count > 0 {
		b.WriteString("\nEverything is paid. Thank you!")
	}

	c.reply(ctx, tenant.ID, b.String())
	return nil
}

// cmdAllStatus summarizes every tenant for the owner: whether this
// month's readings are in, and what remains unpaid.
func (c *Controller) cmdAllStatus(ctx context.Context, owner *rental.Tenant) error {
	now := c.now()

	tenants, err := c.repo.ListTenants(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tenant status, %s:\n\n", now.Format("January 2006"))

	for _, t := range tenants {
		if t.IsOwner {
			continue
		}
		missing, err := c.reminders.MissingMeters(ctx, t.ID, now)
		if err != nil {
			return err
		}
		total, unpaid, err := c.reminders.UnpaidAmount(ctx, t.ID)
		if err != nil {
			return err
		}

		fmt.Fprintf(&b, "%s (%s, id %d): ", t.Name, t.Unit, t.ID)
		switch {
		case len(missing) > 0:
			fmt.Fprintf(&b, "readings missing (%s)", strings.Join(missing, ", "))
		case unpaid > 0:
			fmt.Fprintf(&b, "readings in, %s unpaid", total.StringFixed(2))
		default:
			b.WriteString("all submitted and paid")
		}
		b.WriteString("\n")
	}

	c.reply(ctx, owner.ID, b.String())
	return nil
}

// cmdUnpaid lists tenants with outstanding amounts, any period.
func (c *Controller) cmdUnpaid(ctx context.Context, owner *rental.Tenant) error {
	tenants, err := c.repo.ListTenants(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	found := 0
	for _, t := range tenants {
		if t.IsOwner {
			continue
		}
		total, unpaid, err := c.reminders.UnpaidAmount(ctx, t.ID)
		if err != nil {
			return err
		}
		if unpaid == 0 {
			continue
		}
		found++
		fmt.Fprintf(&b, "%s (%s, id %d): %s across %d reading(s)\n",
			t.Name, t.Unit, t.ID, total.StringFixed(2), unpaid)
	}

	if found == 0 {
		c.reply(ctx, owner.ID, "No unpaid readings. Everyone is settled up.")
		return nil
	}
	c.reply(ctx, owner.ID, "Unpaid readings:\n\n"+b.String())
	return nil
}

// cmdRemind nudges one tenant by ID, regardless of the calendar.
func (c *Controller) cmdRemind(ctx context.Context, owner *rental.Tenant, args string) error {
	arg := strings.TrimSpace(args)
	if arg == "" {
		c.reply(ctx, owner.ID, "Usage: /remind <tenant id>")
		return nil
	}
	tenantID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		c.reply(ctx, owner.ID, fmt.Sprintf("%q is not a tenant id. Usage: /remind <tenant id>", arg))
		return nil
	}

	sent, err := c.reminders.RemindTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if sent {
		c.reply(ctx, owner.ID, fmt.Sprintf("Reminder sent to tenant %d.", tenantID))
	} else {
		c.reply(ctx, owner.ID, fmt.Sprintf("Tenant %d has nothing outstanding, no reminder sent.", tenantID))
	}
	return nil
}

// cmdRemindAll nudges every tenant that is behind on readings or
// payment, regardless of the calendar.
func (c *Controller) cmdRemindAll(ctx context.Context, owner *rental.Tenant) error {
	tenants, err := c.repo.ListTenants(ctx)
	if err != nil {
		return err
	}

	sent, skipped, failed := 0, 0, 0
	for _, t := range tenants {
		if t.IsOwner {
			continue
		}
		ok, err := c.reminders.RemindTenant(ctx, t.ID)
		switch {
		case err != nil:
			failed++
			c.log.WithError(err).WithField("tenant_id", t.ID).Error("failed to remind tenant")
		case ok:
			sent++
		default:
			skipped++
		}
	}

	c.reply(ctx, owner.ID, fmt.Sprintf(
		"Reminders sent: %d, up to date: %d, failed: %d.", sent, skipped, failed))
	return nil
}
