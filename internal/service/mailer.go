package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ecorelais/delivery-backend/internal/logger"
)

// Mailer отправляет письма пользователям.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer пишет письма в лог. Используется, пока не подключён SMTP-провайдер.
type LogMailer struct {
	from string
	log  *logrus.Entry
}

func NewLogMailer(from string) *LogMailer {
	return &LogMailer{from: from, log: logger.Component("mailer")}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.WithFields(logrus.Fields{
		"from":    m.from,
		"to":      to,
		"subject": subject,
	}).Info(body)
	return nil
}
