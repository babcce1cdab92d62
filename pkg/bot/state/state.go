package state

import "context"

// Phase is a position in the per-tenant reading-submission flow.
type Phase int

const (
	// Idle means no flow is in progress.
	Idle Phase = iota
	// AwaitingMeterSelection means the tenant was shown their meters and
	// must pick one.
	AwaitingMeterSelection
	// AwaitingReadingValue means the tenant must enter a numeric reading
	// for the current meter.
	AwaitingReadingValue
	// AwaitingReceiptPhoto means all meters are read and the tenant must
	// send a receipt photo.
	AwaitingReceiptPhoto
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingMeterSelection:
		return "awaiting_meter_selection"
	case AwaitingReadingValue:
		return "awaiting_reading_value"
	case AwaitingReceiptPhoto:
		return "awaiting_receipt_photo"
	default:
		return "unknown"
	}
}

// Session is the conversation state of one tenant. Sessions are
// process-lifetime (memory store) or TTL-bound (redis store); losing an
// in-flight session on restart is acceptable, the tenant just restarts
// the flow.
type Session struct {
	Phase Phase `json:"phase"`

	// Pending holds the names of meters not yet submitted in this flow,
	// in prompt order.
	Pending []string `json:"pending,omitempty"`

	// Current is the meter awaiting a reading value.
	Current string `json:"current,omitempty"`
}

// Store keeps per-tenant sessions keyed by tenant id. Implementations
// must be safe for concurrent use; sessions of different tenants are
// fully independent.
type Store interface {
	// Get returns the tenant's session, or an Idle session when none is
	// stored.
	Get(ctx context.Context, tenantID int64) (*Session, error)

	// Put stores the tenant's session.
	Put(ctx context.Context, tenantID int64, session *Session) error

	// Clear drops the tenant's session, returning it to Idle.
	Clear(ctx context.Context, tenantID int64) error
}
