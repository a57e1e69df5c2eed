// Package content owns the content entities of the site and the adapter over
// the persistent store. It is the single source of truth: every consumer's
// cached view is disposable and rebuildable from a fresh Fetch.
package content

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic is a logical grouping of entity mutations that subscribers register
// against. Each topic maps to one collection in the store.
type Topic string

const (
	TopicConfig         Topic = "website_config"
	TopicSections       Topic = "page_sections"
	TopicProjects       Topic = "projects"
	TopicSkills         Topic = "skills"
	TopicCertifications Topic = "certifications"
	TopicAutomation     Topic = "automation_entries"
	TopicContact        Topic = "contact_info"
	TopicTheme          Topic = "theme_settings"
	TopicMedia          Topic = "media_assets"
)

var allTopics = []Topic{
	TopicConfig,
	TopicSections,
	TopicProjects,
	TopicSkills,
	TopicCertifications,
	TopicAutomation,
	TopicContact,
	TopicTheme,
	TopicMedia,
}

// Topics returns every known topic in a stable order.
func Topics() []Topic {
	out := make([]Topic, len(allTopics))
	copy(out, allTopics)
	return out
}

// ParseTopic validates a topic string from the transport or URL path.
func ParseTopic(s string) (Topic, error) {
	for _, t := range allTopics {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown topic: %s", s)
}

// Entity is the common shape of every content row: an opaque key, a
// semi-structured payload, and the commit timestamp. Payloads are never
// trusted as pre-sanitized; the gate runs on every write path.
type Entity struct {
	ID        uuid.UUID      `json:"id"`
	Topic     Topic          `json:"topic"`
	Payload   map[string]any `json:"payload"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Filter narrows a Fetch to rows whose payload field equals a value. The
// zero Filter matches everything.
type Filter struct {
	Field  string
	Equals any
}

// IsZero reports whether the filter constrains anything.
func (f Filter) IsZero() bool { return f.Field == "" }

// Matches evaluates the filter against a payload. Comparison goes through
// string formatting so JSON-decoded numbers and booleans compare sanely.
func (f Filter) Matches(payload map[string]any) bool {
	if f.IsZero() {
		return true
	}
	v, ok := payload[f.Field]
	if !ok {
		return false
	}
	return fmt.Sprintf("%v", v) == fmt.Sprintf("%v", f.Equals)
}
