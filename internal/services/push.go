// internal/services/push.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reportes-viales/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// PushMessage — один push в формате Expo push API
type PushMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound,omitempty"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushTicket — квитанция шлюза по одному сообщению.
// Эфемерна: используется только для логирования, не персистится.
type PushTicket struct {
	Status  string             `json:"status"` // "ok" или "error"
	ID      string             `json:"id,omitempty"`
	Message string             `json:"message,omitempty"`
	Details *PushTicketDetails `json:"details,omitempty"`
}

type PushTicketDetails struct {
	Error string `json:"error,omitempty"` // DeviceNotRegistered, MessageTooBig, ...
}

const (
	TicketStatusOK    = "ok"
	TicketStatusError = "error"
)

type expoPushResponse struct {
	Data []PushTicket `json:"data"`
}

// PushGateway — абстракция внешнего push-шлюза.
// Инжектируется в движок уведомлений, в тестах подменяется фейком.
type PushGateway interface {
	Dispatch(ctx context.Context, messages []PushMessage) ([]PushTicket, error)
}

// IsExpoPushToken — чистая проверка формата токена, без сетевых вызовов.
// Невалидные токены отбрасываются до отправки.
func IsExpoPushToken(token string) bool {
	if !strings.HasSuffix(token, "]") {
		return false
	}
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// ExpoPushClient — клиент Expo push gateway (bulk-send)
type ExpoPushClient struct {
	client  *resty.Client
	pushURL string
}

func NewExpoPushClient(cfg *config.Config) *ExpoPushClient {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.ExpoAccessToken != "" {
		client.SetAuthToken(cfg.ExpoAccessToken)
	}

	return &ExpoPushClient{
		client:  client,
		pushURL: cfg.ExpoPushURL,
	}
}

// Dispatch отправляет пачку сообщений одним запросом к шлюзу.
// Невалидные токены отбрасываются с записью в лог. Отказ по одному
// сообщению не мешает доставке остальных: шлюз возвращает отдельную
// квитанцию на каждое. Ошибка возвращается только при полной
// недоступности шлюза.
func (c *ExpoPushClient) Dispatch(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	valid := make([]PushMessage, 0, len(messages))
	for _, message := range messages {
		if !IsExpoPushToken(message.To) {
			logrus.WithField("token", message.To).Warn("Отброшен push с невалидным форматом токена")
			continue
		}
		valid = append(valid, message)
	}

	if len(valid) == 0 {
		return nil, nil
	}

	var response expoPushResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(valid).
		SetResult(&response).
		Post(c.pushURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к push-шлюзу: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("push-шлюз вернул статус %d", resp.StatusCode())
	}

	// Квитанции коррелируют с сообщениями позиционно
	for i, ticket := range response.Data {
		if ticket.Status == TicketStatusOK {
			continue
		}

		entry := logrus.WithFields(logrus.Fields{
			"ticket_status": ticket.Status,
			"message":       ticket.Message,
		})
		if i < len(valid) {
			entry = entry.WithField("token", valid[i].To)
		}
		if ticket.Details != nil && ticket.Details.Error != "" {
			entry = entry.WithField("error_code", ticket.Details.Error)
		}
		entry.Warn("Push-шлюз отклонил сообщение")
	}

	return response.Data, nil
}
