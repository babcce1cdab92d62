package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/rentalops/meterbot/pkg/async"
)

// handleTimeout bounds one update's handling, covering the Sheets and
// object-store round trips it may involve.
const handleTimeout = 2 * time.Minute

// TelegramGateway implements Gateway on the Telegram Bot API with long
// polling.
type TelegramGateway struct {
	api *tgbotapi.BotAPI
	log *logrus.Logger
}

// NewTelegramGateway authenticates against the Telegram Bot API.
func NewTelegramGateway(token string, log *logrus.Logger) (*TelegramGateway, error) {
	if log == nil {
		log = logrus.New()
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	log.WithField("bot", api.Self.UserName).Info("authorized with telegram")
	return &TelegramGateway{api: api, log: log}, nil
}

// SendMessage implements Gateway.
func (g *TelegramGateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	if _, err := g.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// DownloadPhoto implements Gateway.
func (g *TelegramGateway) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	file, err := g.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve photo file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(g.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build photo request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download photo: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo body: %w", err)
	}
	return data, nil
}

// Run polls Telegram for updates and feeds them to handler until ctx is
// canceled. Updates are handled one at a time, which serializes state
// transitions per tenant by construction.
func (g *TelegramGateway) Run(ctx context.Context, handler func(context.Context, Update)) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := g.api.GetUpdatesChan(cfg)
	defer g.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			update, ok := fromTelegram(raw)
			if !ok {
				continue
			}
			async.SafeCall(ctx, handleTimeout, "handle update", g.log, func(callCtx context.Context) {
				handler(callCtx, update)
			})
		}
	}
}

// fromTelegram reduces a raw Telegram update to the controller's Update.
// Edits, callbacks and other non-message updates are dropped.
func fromTelegram(raw tgbotapi.Update) (Update, bool) {
	msg := raw.Message
	if msg == nil || msg.From == nil {
		return Update{}, false
	}

	update := Update{TenantID: msg.From.ID}
	switch {
	case msg.IsCommand():
		update.Command = msg.Command()
		update.Args = msg.CommandArguments()
	case len(msg.Photo) > 0:
		// Telegram sends multiple sizes; the last is the largest.
		update.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
	default:
		update.Text = msg.Text
	}
	return update, true
}
