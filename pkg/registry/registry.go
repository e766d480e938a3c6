// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"forbill-bot/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

const defaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	template *ReplyTemplate
	loadedAt time.Time
}

// Registry loads reply templates from a JSON file and renders them with
// placeholder substitution. Templates are cached with a TTL so edits to the
// registry file roll out without a restart.
type Registry struct {
	path     string
	cacheTTL time.Duration
	mu       sync.RWMutex
	cache    map[string]*cacheEntry
}

func New(path string) *Registry {
	return &Registry{
		path:     path,
		cacheTTL: defaultCacheTTL,
		cache:    make(map[string]*cacheEntry),
	}
}

// Load reads the whole registry file. Used at startup to fail fast on a
// malformed file.
func Load(path string) (*ReplyRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ReplyRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Render looks up a template by ID, validates data against its schema, and
// returns the text with placeholders substituted plus any quick-reply buttons.
func (r *Registry) Render(id string, data map[string]interface{}) (string, []TemplateButton, error) {
	template, err := r.loadTemplate(id)
	if err != nil {
		return "", nil, err
	}

	if err := validateData(template.DataSchema, data); err != nil {
		return "", nil, errors.NewTemplateValidationFailedError(err.Error())
	}

	return substitute(template.Text, data), template.Buttons, nil
}

func (r *Registry) loadTemplate(id string) (*ReplyTemplate, error) {
	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && time.Since(entry.loadedAt) < r.cacheTTL {
		r.mu.RUnlock()
		return entry.template, nil
	}
	r.mu.RUnlock()

	reg, err := Load(r.path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	for i := range reg.Templates {
		t := reg.Templates[i]
		if t.ID == id {
			r.mu.Lock()
			r.cache[id] = &cacheEntry{
				template: &t,
				loadedAt: time.Now(),
			}
			r.mu.Unlock()
			return &t, nil
		}
	}

	return nil, errors.NewTemplateNotFoundError(id)
}

func validateData(schemaMap, data map[string]interface{}) error {
	if len(schemaMap) == 0 {
		return nil
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("data validation failed: %v", errs)
	}

	return nil
}

// substitute replaces {{key}} markers, supporting dotted paths into nested
// maps. Markers with no matching value are removed.
func substitute(text string, data map[string]interface{}) string {
	result := text

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2

		key := strings.TrimSpace(result[start+2 : end-2])
		value := ""
		if v := lookupNestedValue(data, key); v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = result[:start] + value + result[end:]
	}

	return result
}

func lookupNestedValue(data map[string]interface{}, key string) interface{} {
	parts := strings.Split(key, ".")
	current := interface{}(data)

	for _, part := range parts {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}

		val, exists := currentMap[part]
		if !exists {
			return nil
		}

		current = val
	}

	return current
}
