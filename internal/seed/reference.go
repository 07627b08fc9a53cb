package seed

import (
	_ "embed"
	"fmt"
	"time"

	"handbook/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var referenceYAML []byte

// Reference is the data every deployment starts with.
type Reference struct {
	Channels []models.Channel `yaml:"channels"`
	Welcome  WelcomeMessage   `yaml:"welcome"`
	Events   []EventSeed      `yaml:"events"`
}

// WelcomeMessage is posted once to the announcements channel.
type WelcomeMessage struct {
	ID        string `yaml:"id"`
	ChannelID string `yaml:"channel_id"`
	UserID    string `yaml:"user_id"`
	Username  string `yaml:"username"`
	Content   string `yaml:"content"`
}

// EventSeed is an event whose dates are relative to the seeding year.
type EventSeed struct {
	models.Event `yaml:",inline"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
}

const eventDateLayout = "2006-01-02 15:04"

// LoadReference parses the embedded reference data.
func LoadReference() (*Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(referenceYAML, &ref); err != nil {
		return nil, fmt.Errorf("parse reference data: %w", err)
	}
	return &ref, nil
}

// Resolve returns the event with Start and End placed in year.
func (e EventSeed) Resolve(year int) (models.Event, error) {
	event := e.Event
	start, err := time.Parse(eventDateLayout, fmt.Sprintf("%04d-%s", year, e.Start))
	if err != nil {
		return event, fmt.Errorf("event %s: bad start %q: %w", e.ID, e.Start, err)
	}
	end, err := time.Parse(eventDateLayout, fmt.Sprintf("%04d-%s", year, e.End))
	if err != nil {
		return event, fmt.Errorf("event %s: bad end %q: %w", e.ID, e.End, err)
	}
	event.StartTime = start
	event.EndTime = end
	return event, nil
}

func (w WelcomeMessage) message() models.Message {
	return models.Message{
		ID:          w.ID,
		ChannelID:   w.ChannelID,
		UserID:      w.UserID,
		Username:    w.Username,
		Content:     w.Content,
		MessageType: models.DefaultMessageType,
	}
}
