package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clientflow-hq/clientflow/internal/pkg/config"
)

type SMSChannel struct {
	cfg    *config.SMSConfig
	client *http.Client
}

func NewSMSChannel(cfg *config.SMSConfig) *SMSChannel {
	return &SMSChannel{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Send(ctx context.Context, recipient string, msg Rendered) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.AccountSID)

	data := url.Values{}
	data.Set("From", c.cfg.From)
	data.Set("To", recipient)
	data.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return &DeliveryError{Channel: c.Name(), Err: err}
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return &DeliveryError{Channel: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		var apiErr struct {
			Message string `json:"message"`
		}
		detail := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			detail = apiErr.Message
		}

		return &DeliveryError{
			Channel: c.Name(),
			Err:     fmt.Errorf("sms api returned %d: %s", resp.StatusCode, detail),
		}
	}

	return nil
}
