package mailer

import (
	"context"
	"testing"

	"storefront-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestBuildMessage(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "localhost", Port: 1025, From: "reports@shop.vn"})

	t.Run("Success", func(t *testing.T) {
		msg, err := s.buildMessage([]string{"admin@shop.vn", "ops@shop.vn"}, "Báo cáo tháng 02/2025", "<p>ok</p>")
		require.NoError(t, err)

		rcpts, err := msg.GetRecipients()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"admin@shop.vn", "ops@shop.vn"}, rcpts)
		assert.Equal(t, []string{"Báo cáo tháng 02/2025"}, msg.GetGenHeader(mail.HeaderSubject))
	})

	t.Run("NoRecipients", func(t *testing.T) {
		_, err := s.buildMessage(nil, "x", "y")
		assert.ErrorIs(t, err, ErrNoRecipients)
	})

	t.Run("InvalidRecipient", func(t *testing.T) {
		_, err := s.buildMessage([]string{"not-an-address"}, "x", "y")
		assert.Error(t, err)
	})
}

func TestSend_NoRecipients(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "localhost", Port: 1025, From: "reports@shop.vn"})

	err := s.Send(context.Background(), nil, "x", "y")
	assert.ErrorIs(t, err, ErrNoRecipients)
}
