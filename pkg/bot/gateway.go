package bot

import "context"

// Update is one inbound event from the messaging platform, reduced to
// what the controller needs: who sent it and what kind of payload it
// carries.
type Update struct {
	// TenantID is the sender's opaque numeric identity (Telegram user ID).
	TenantID int64

	// Command is the bot command without the leading slash, or "" when
	// the update is not a command.
	Command string

	// Args is the text following the command.
	Args string

	// Text is the message text for non-command messages.
	Text string

	// PhotoFileID identifies the largest size of an attached photo, or
	// "" when the update carries none.
	PhotoFileID string
}

// Gateway delivers outbound messages and fetches photo payloads.
// Implemented by the Telegram adapter; mocked in tests.
type Gateway interface {
	// SendMessage delivers text to the chat identified by chatID.
	SendMessage(ctx context.Context, chatID int64, text string) error

	// DownloadPhoto fetches the bytes of an inbound photo by file ID.
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)
}

// ReceiptStore uploads a receipt image and returns the URL stored on the
// reading rows. Implemented by pkg/storage/receipts.
type ReceiptStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
