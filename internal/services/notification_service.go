package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"registrar/internal/utils"
)

// Notifier доставляет SMS и письма. Ошибка доставки не откатывает выданный код или ссылку.
type Notifier interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendEmail(ctx context.Context, to, subject, html string) error
}

// SMSSender: то, что нужно от SMS-провайдера (utils.Client для Mobizon).
type SMSSender interface {
	SendSMS(ctx context.Context, to, text string) (*utils.SendSMSResponse, error)
}

type NotificationDispatcher struct {
	sms   SMSSender
	email EmailService
	log   *logrus.Logger
}

func NewNotificationDispatcher(sms SMSSender, email EmailService, log *logrus.Logger) *NotificationDispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NotificationDispatcher{sms: sms, email: email, log: log}
}

func (d *NotificationDispatcher) SendSMS(ctx context.Context, phone, message string) error {
	if d.sms == nil {
		return errors.New("sms provider is not configured")
	}
	resp, err := d.sms.SendSMS(ctx, phone, message)
	if err != nil {
		d.log.WithError(err).WithField("phone", utils.MaskPhone(phone)).Warn("[notify][sms] delivery failed")
		return fmt.Errorf("send sms: %w", err)
	}
	entry := d.log.WithField("phone", utils.MaskPhone(phone))
	if resp != nil {
		entry = entry.WithField("message_id", resp.Data.MessageID)
	}
	entry.Info("[notify][sms] sent")
	return nil
}

func (d *NotificationDispatcher) SendEmail(ctx context.Context, to, subject, html string) error {
	if d.email == nil {
		return errors.New("email is not configured")
	}
	if err := d.email.Send(ctx, to, subject, html); err != nil {
		d.log.WithError(err).Warn("[notify][email] delivery failed")
		return err
	}
	d.log.WithField("subject", subject).Info("[notify][email] sent")
	return nil
}
