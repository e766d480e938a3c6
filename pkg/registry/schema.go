// pkg/registry/schema.go
package registry

// ReplyRegistry is the on-disk catalog of outbound reply templates.
type ReplyRegistry struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Templates   []ReplyTemplate `json:"templates"`
}

// ReplyTemplate defines one outbound message. Text carries {{placeholder}}
// markers; DataSchema is a JSON Schema the render data must satisfy before
// substitution. Buttons, when present, become interactive quick replies.
type ReplyTemplate struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Text        string                 `json:"text"`
	Buttons     []TemplateButton       `json:"buttons,omitempty"`
	DataSchema  map[string]interface{} `json:"dataSchema,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
}

type TemplateButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
