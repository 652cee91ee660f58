package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/config"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
)

type EmailSender interface {
	Send(to, subject, body string) error
}

type smtpSender struct {
	cfg config.MailConfig
}

type logSender struct{}

func NewEmailSender(cfg config.MailConfig) EmailSender {
	if cfg.Type == "log" {
		return logSender{}
	}
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(to, subject, body string) error {
	from := strings.TrimSpace(s.cfg.From)
	if s.cfg.Host == "" || s.cfg.Port == 0 || from == "" {
		return appErr.ErrInvalid
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

// Send writes the message to the log instead of mailing it. Development only.
func (logSender) Send(to, subject, body string) error {
	logutil.GetLogger(context.Background()).Info("mail not sent, logged instead",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// CodeSender delivers a one-time code to its identity.
type CodeSender interface {
	SendCode(ctx context.Context, to, code string) error
}

type mailCodeSender struct {
	sender  EmailSender
	subject string
	ttl     time.Duration
}

func NewCodeSender(sender EmailSender, subject string, ttl time.Duration) CodeSender {
	return &mailCodeSender{sender: sender, subject: subject, ttl: ttl}
}

func (s *mailCodeSender) SendCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your access code is %s.\r\n\r\nIt is valid for %s and can be used once.\r\n"+
		"If you did not request it, ignore this message.", code, validity(s.ttl))
	return s.sender.Send(to, s.subject, body)
}

// validity spells out ttl in whole minutes when it is a minute multiple, in seconds otherwise.
func validity(ttl time.Duration) string {
	if ttl >= time.Minute && ttl%time.Minute == 0 {
		minutes := int(ttl / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", int(ttl/time.Second))
}
