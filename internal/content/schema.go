package content

import "atelier/internal/gate"

// Per-topic input schemas. The payload column is schemaless at the store, so
// the variant schemas live here and are enforced at the gate boundary on
// every write instead of being trusted implicitly.
var schemas = map[Topic]map[string]gate.Rule{
	TopicConfig: {
		"key":   {Required: true, MaxLength: 120},
		"value": {MaxLength: 1000},
	},
	TopicSections: {
		"title":      {Required: true, MaxLength: 200},
		"subtitle":   {MaxLength: 300},
		"content":    {MaxLength: 1000},
		"is_visible": {},
	},
	TopicProjects: {
		"title":       {Required: true, MaxLength: 200},
		"description": {MaxLength: 1000},
		"url":         {URL: true},
		"image_url":   {URL: true},
	},
	TopicSkills: {
		"name":     {Required: true, MaxLength: 120},
		"level":    {MaxLength: 40},
		"category": {MaxLength: 80},
	},
	TopicCertifications: {
		"title":  {Required: true, MaxLength: 200},
		"issuer": {MaxLength: 200},
		"url":    {URL: true},
	},
	TopicAutomation: {
		"title":       {Required: true, MaxLength: 200},
		"description": {MaxLength: 1000},
		"status":      {MaxLength: 40},
	},
	TopicContact: {
		"email":    {Email: true},
		"phone":    {MaxLength: 40},
		"location": {MaxLength: 200},
	},
	TopicTheme: {
		"key":   {Required: true, MaxLength: 120},
		"value": {MaxLength: 1000},
	},
	TopicMedia: {
		"name":     {Required: true, MaxLength: 200},
		"url":      {Required: true, URL: true},
		"alt_text": {MaxLength: 300},
	},
}

// Schema returns the gate rules for a topic's payload variant. Unknown
// topics get an empty rule set, which still sanitizes strings on submit.
func Schema(t Topic) map[string]gate.Rule {
	if s, ok := schemas[t]; ok {
		return s
	}
	return map[string]gate.Rule{}
}
