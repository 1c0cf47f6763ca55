// Package notify pushes alerts about urgent action items to Telegram so
// high-value prospects are not missed between dashboard visits.
package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"prospector/server/internal/models"
)

// Config controls the Telegram alert channel. An empty bot token disables
// the service entirely.
type Config struct {
	BotToken          string
	ChatID            string
	PriorityThreshold int
}

type Service struct {
	logger *logrus.Logger
	client *http.Client
	config Config
}

func NewService(config Config, logger *logrus.Logger) *Service {
	return &Service{
		logger: logger,
		config: config,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the alert channel is configured.
func (s *Service) Enabled() bool {
	return s.config.BotToken != ""
}

// SendMessage sends an HTML-formatted message to the configured chat.
func (s *Service) SendMessage(message string) error {
	if !s.Enabled() {
		return nil
	}
	if s.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyActionItem alerts about a newly created action item when its
// priority meets the configured threshold.
func (s *Service) NotifyActionItem(action *models.ActionItem, owner *models.PropertyOwner) error {
	if !s.Enabled() {
		return nil
	}
	if action.Priority < s.config.PriorityThreshold {
		return nil
	}

	segment := "Unsegmented"
	if owner.ProspectSegment != nil && owner.ProspectSegment.Category != "" {
		segment = owner.ProspectSegment.Category
	}

	message := fmt.Sprintf(
		"<b>🔥 High Priority Action</b>\n\n"+
			"📋 %s\n"+
			"👤 %s (%s)\n"+
			"⚡ Priority %d\n"+
			"🗓️ %s",
		action.Title,
		owner.FullName,
		segment,
		action.Priority,
		action.ScheduledDate.Format("Mon 2 Jan 15:04"),
	)

	return s.SendMessage(message)
}
