package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/votegate/internal/config"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
)

type recordingSender struct {
	to, subject, body string
	err               error
}

func (r *recordingSender) Send(to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return r.err
}

func TestCodeSender_ComposesMessage(t *testing.T) {
	mail := &recordingSender{}
	sender := NewCodeSender(mail, "Your code", 5*time.Minute)
	require.NoError(t, sender.SendCode(context.Background(), "a@x.com", "123456"))
	require.Equal(t, "a@x.com", mail.to)
	require.Equal(t, "Your code", mail.subject)
	require.Contains(t, mail.body, "123456")
	require.Contains(t, mail.body, "5 minutes")

	mail.err = errors.New("smtp down")
	require.Error(t, sender.SendCode(context.Background(), "a@x.com", "123456"))
}

func TestCodeSender_ShortTTLInSeconds(t *testing.T) {
	mail := &recordingSender{}
	require.NoError(t, NewCodeSender(mail, "Your code", 45*time.Second).SendCode(context.Background(), "a@x.com", "123456"))
	require.Contains(t, mail.body, "valid for 45 seconds")
	require.NotContains(t, mail.body, "0 minutes")
}

func TestValidity(t *testing.T) {
	require.Equal(t, "5 minutes", validity(5*time.Minute))
	require.Equal(t, "1 minute", validity(time.Minute))
	require.Equal(t, "90 seconds", validity(90*time.Second))
	require.Equal(t, "30 seconds", validity(30*time.Second))
}

func TestNewEmailSender(t *testing.T) {
	require.NoError(t, NewEmailSender(config.MailConfig{Type: "log"}).Send("a@x.com", "s", "b"))
	err := NewEmailSender(config.MailConfig{Type: "smtp"}).Send("a@x.com", "s", "b")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
