// Package bot implements the Telegram-facing side of the service: the
// update gateway, the per-tenant conversation state machine for
// submitting meter readings and receipts, and the command surface for
// tenants and the owner.
package bot
