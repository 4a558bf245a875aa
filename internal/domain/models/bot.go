package models

import "time"

// BotStatus is the externally visible on/off switch of a bot.
type BotStatus string

const (
	BotStatusActive   BotStatus = "ACTIVE"
	BotStatusInactive BotStatus = "INACTIVE"
)

// Valid reports whether s is one of the known statuses.
func (s BotStatus) Valid() bool {
	return s == BotStatusActive || s == BotStatusInactive
}

// Widget defaults applied to every new bot.
const (
	DefaultPrimaryColor   = "#007bff"
	DefaultHeaderText     = "Chat with AI"
	DefaultInitialMessage = "Hi! How can I help you today?"
)

// Customization controls how the embedded widget looks.
type Customization struct {
	PrimaryColor   string `json:"primaryColor"`
	HeaderText     string `json:"headerText"`
	InitialMessage string `json:"initialMessage"`
}

// DefaultCustomization returns the look of a freshly created bot.
func DefaultCustomization() Customization {
	return Customization{
		PrimaryColor:   DefaultPrimaryColor,
		HeaderText:     DefaultHeaderText,
		InitialMessage: DefaultInitialMessage,
	}
}

// BotStats are the per-bot usage counters.
type BotStats struct {
	Status         BotStatus  `json:"status"`
	TotalQueries   int64      `json:"totalQueries"`
	LastActivityAt *time.Time `json:"lastActivityAt"`
}

// Bot is a knowledge base built from one source document, reachable through
// exactly one API key.
type Bot struct {
	ID             string        `json:"id"`
	OwnerID        string        `json:"-"`
	Name           string        `json:"name"`
	APIKey         string        `json:"apiKey"`
	Status         BotStatus     `json:"-"`
	Customization  Customization `json:"customization"`
	TrainedSources []string      `json:"trainedSources"`
	TotalQueries   int64         `json:"-"`
	LastActivityAt *time.Time    `json:"-"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"-"`
}

// Stats returns the bot's counters as exposed to its owner.
func (b *Bot) Stats() BotStats {
	return BotStats{
		Status:         b.Status,
		TotalQueries:   b.TotalQueries,
		LastActivityAt: b.LastActivityAt,
	}
}

// IsActive reports whether the public query path may serve this bot.
func (b *Bot) IsActive() bool {
	return b.Status == BotStatusActive
}

// BotDetails is the owner-facing view of a single bot.
type BotDetails struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	CreatedAt      time.Time     `json:"createdAt"`
	APIKey         string        `json:"apiKey"`
	Stats          BotStats      `json:"stats"`
	Customization  Customization `json:"customization"`
	TrainedSources []string      `json:"trainedSources"`
}

// Details builds the owner-facing view.
func (b *Bot) Details() *BotDetails {
	sources := b.TrainedSources
	if sources == nil {
		sources = []string{}
	}
	return &BotDetails{
		ID:             b.ID,
		Name:           b.Name,
		CreatedAt:      b.CreatedAt,
		APIKey:         b.APIKey,
		Stats:          b.Stats(),
		Customization:  b.Customization,
		TrainedSources: sources,
	}
}

// CustomizationField is one tri-state PATCH value, mapped by the handler from
// httputil.OptionalString:
//   - Present=false: field absent (keep)
//   - Present=true, Value=nil: JSON null (restore the default)
//   - Present=true, Value=&"...": set
type CustomizationField struct {
	Present bool
	Value   *string
}

// CustomizationUpdate is a partial widget update.
type CustomizationUpdate struct {
	PrimaryColor   CustomizationField
	HeaderText     CustomizationField
	InitialMessage CustomizationField
}

// Empty reports whether the update touches nothing.
func (u CustomizationUpdate) Empty() bool {
	return !u.PrimaryColor.Present && !u.HeaderText.Present && !u.InitialMessage.Present
}

// Apply returns c with u merged in.
func (c Customization) Apply(u CustomizationUpdate) Customization {
	defaults := DefaultCustomization()
	c.PrimaryColor = u.PrimaryColor.resolve(c.PrimaryColor, defaults.PrimaryColor)
	c.HeaderText = u.HeaderText.resolve(c.HeaderText, defaults.HeaderText)
	c.InitialMessage = u.InitialMessage.resolve(c.InitialMessage, defaults.InitialMessage)
	return c
}

func (f CustomizationField) resolve(current, def string) string {
	switch {
	case !f.Present:
		return current
	case f.Value == nil:
		return def
	default:
		return *f.Value
	}
}
