// Package mailer предоставляет клиент для внешнего почтового провайдера.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrNotConfigured возвращается, если клиент не инициализирован ключом провайдера.
var ErrNotConfigured = errors.New("mailer client not configured")

// Client инкапсулирует HTTP-взаимодействие с почтовым провайдером.
// Отправка письма — «лучшее из возможного»: ошибка отправки не должна
// приводить к откату уже сохранённых данных, решение за вызывающей стороной.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *retryablehttp.Client
}

// Attachment описывает вложение исходящего письма.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Message описывает одно исходящее письмо.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type sendRequest struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// NewClient создаёт клиент почтового провайдера с ограниченным таймаутом
// и небольшим числом повторов на сетевые сбои.
func NewClient(baseURL, apiKey, from string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		httpClient: rc,
	}
}

// EncodeAttachment кодирует содержимое вложения в base64, как того требует провайдер.
func EncodeAttachment(filename string, data []byte) Attachment {
	return Attachment{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(data),
	}
}

// Send отправляет письмо через HTTP API провайдера.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil || c.apiKey == "" || c.baseURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{
		From:        c.from,
		To:          msg.To,
		Subject:     msg.Subject,
		HTML:        msg.HTML,
		Attachments: msg.Attachments,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
