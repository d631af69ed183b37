package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultMobizonURL = "https://api.mobizon.kz/service/message/sendsmsmessage"

type Client struct {
	ApiKey  string
	Sender  string // опционально
	DryRun  bool   // dry-run режим
	BaseURL string

	HTTP *http.Client
	Log  *logrus.Logger
}

type SendSMSResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

func NewClientWithOptions(apiKey, sender string, dryRun bool) *Client {
	return &Client{
		ApiKey:  apiKey,
		Sender:  sender,
		DryRun:  dryRun,
		BaseURL: defaultMobizonURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Log:     logrus.StandardLogger(),
	}
}

// SendSMS: отправка SMS через Mobizon (или имитация в dry-run)
func (c *Client) SendSMS(ctx context.Context, to, text string) (*SendSMSResponse, error) {
	// DRY-RUN: не делаем HTTP-запрос. Текст не логируем, в нём код.
	if c.DryRun || c.ApiKey == "" || c.ApiKey == "dry-run" {
		c.logger().WithFields(logrus.Fields{"to": MaskPhone(to), "sender": c.Sender}).Info("[mobizon][dry-run] sms skipped")
		return &SendSMSResponse{Code: 0}, nil
	}

	form := url.Values{
		"apiKey":    {c.ApiKey},
		"recipient": {strings.TrimPrefix(to, "+")},
		"text":      {text},
	}
	if c.Sender != "" {
		form.Set("from", c.Sender)
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = defaultMobizonURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send SMS request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read SMS response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mobizon http status %d", resp.StatusCode)
	}

	var result SendSMSResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("mobizon returned error code: %d (%s)", result.Code, result.Message)
	}
	c.logger().WithFields(logrus.Fields{"to": MaskPhone(to), "message_id": result.Data.MessageID}).Info("[mobizon][send] ok")
	return &result, nil
}

func (c *Client) logger() *logrus.Logger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}
