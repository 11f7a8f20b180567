// Package xray реализует клиент панели управления xray —
// внешней плоскости контроля доступа. Сервис выдаёт и отзывает
// клиентов инбаунда по идентификатору пользователя, внутренние
// поля конфигурации панели его не интересуют.
package xray

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/soloviovd/vpn-subscription-service/internal/config"
)

type Client struct {
	baseURL    string
	apiKey     string
	inboundTag string
	httpClient *http.Client
}

// NewClient создаёт клиент панели xray. Все вызовы ограничены таймаутом
// из конфига: зависший вызов панели не должен останавливать свип.
func NewClient(cfg config.XrayPanel) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		inboundTag: cfg.InboundTag,
		httpClient: &http.Client{Timeout: cfg.PanelTimeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.baseURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// AddClient добавляет клиента в инбаунд при активации подписки.
func (c *Client) AddClient(ctx context.Context, userUID string) error {
	const op = "xray.AddClient"

	path := fmt.Sprintf("/api/inbounds/%s/clients", c.inboundTag)
	reqBody := map[string]string{"id": userUID}
	req, err := c.newRequest(ctx, http.MethodPost, path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}
	return nil
}

// RemoveClient удаляет клиента из инбаунда при отзыве доступа.
// Ответ 404 считается успехом: клиента уже нет, отзыв идемпотентен.
func (c *Client) RemoveClient(ctx context.Context, userUID string) error {
	const op = "xray.RemoveClient"

	path := fmt.Sprintf("/api/inbounds/%s/clients/%s", c.inboundTag, userUID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}
	return nil
}
