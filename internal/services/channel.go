package services

import (
	"context"

	"github.com/baharkarakas/deposit-relay/internal/telegram"
)

// Channel is the slice of the Telegram client the services depend on.
// Satisfied by *telegram.Client; tests inject fakes.
type Channel interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
}
