package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fabro-storefront/internal/config"
)

type EmailSender interface {
	SendEmail(ctx context.Context, msg *EmailMessage) (string, error)
}

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

type resendClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	apiKey     string
	from       string
}

type resendSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

func NewResendClient(cfg *config.Resend) EmailSender {
	return &resendClientImpl{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseApiURL: strings.TrimRight(cfg.BaseApiURL, "/"),
		apiKey:     cfg.APIKey,
		from:       cfg.From,
	}
}

func (c *resendClientImpl) SendEmail(ctx context.Context, msg *EmailMessage) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("resend api key is not configured")
	}

	body, err := json.Marshal(resendSendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend send request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("resend error %d: %s", resp.StatusCode, string(respBody))
	}

	var result resendSendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode resend response: %w", err)
	}

	return result.ID, nil
}
