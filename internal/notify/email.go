package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/clientflow-hq/clientflow/internal/pkg/config"
)

type EmailChannel struct {
	cfg *config.SMTPConfig
}

func NewEmailChannel(cfg *config.SMTPConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, recipient string, msg Rendered) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Channel: c.Name(), Err: err}
	}

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	// smtp.SendMail has no context support; run it on a goroutine so a
	// cancelled ctx turns into a delivery failure instead of a hang.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, c.cfg.From, []string{recipient}, c.buildMessage(recipient, msg))
	}()

	select {
	case <-ctx.Done():
		return &DeliveryError{Channel: c.Name(), Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return &DeliveryError{Channel: c.Name(), Err: err}
		}
		return nil
	}
}

func (c *EmailChannel) buildMessage(recipient string, msg Rendered) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", c.cfg.FromName, c.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)

	return buf.Bytes()
}
