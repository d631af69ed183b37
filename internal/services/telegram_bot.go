package services

import (
	"context"
	"fmt"
	"html"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"registrar/internal/models"
	"registrar/internal/utils"
)

// LockoutAlerter уведомляет сотрудников о заблокированной верификации.
type LockoutAlerter interface {
	LockoutAlert(ctx context.Context, reg *models.Registration, attempts int)
}

type TelegramService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *logrus.Logger
}

// NewTelegramService: при пустом токене алерты выключены, возвращается nil без ошибки.
// endpoint пустой: api.telegram.org.
func NewTelegramService(botToken string, chatID int64, endpoint string, client *http.Client, log *logrus.Logger) (*TelegramService, error) {
	if botToken == "" {
		return nil, nil
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramService{bot: bot, chatID: chatID, log: log}, nil
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || t.bot == nil || chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

func (t *TelegramService) LockoutAlert(ctx context.Context, reg *models.Registration, attempts int) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}
	text := fmt.Sprintf(
		"<b>Vérification bloquée</b>\nDossier #%d (%s %s)\nTéléphone: %s\nTentatives: %d",
		reg.ID, html.EscapeString(reg.FirstName), html.EscapeString(reg.LastName), utils.MaskPhone(reg.Phone), attempts,
	)
	if err := t.SendMessage(t.chatID, text); err != nil {
		t.log.WithError(err).WithField("registration_id", reg.ID).Warn("[tg][lockout] alert failed")
		return
	}
	t.log.WithField("registration_id", reg.ID).Info("[tg][lockout] alert sent")
}
