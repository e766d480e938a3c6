// internal/intent/classifier.go
package intent

import (
	"fmt"
	"strings"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"
)

// Classifier turns one line of user text into a ParsedCommand. The grammar
// catalog and bounds are fixed at construction, so a Classifier is safe for
// concurrent use without synchronization. To change bounds or vocabularies
// at runtime, construct a new Classifier and swap the reference.
type Classifier struct {
	catalog []grammar
	limits  config.LimitsConfig
	logger  logger.Logger
}

// NewClassifier validates the configured bounds and builds the grammar
// catalog. Inconsistent configuration is fatal here rather than producing
// unpredictable per-message behavior.
func NewClassifier(limits config.LimitsConfig, log logger.Logger) (*Classifier, error) {
	if limits.Airtime.Min > limits.Airtime.Max {
		return nil, fmt.Errorf("airtime bounds inconsistent: min %d > max %d", limits.Airtime.Min, limits.Airtime.Max)
	}
	if limits.Electricity.Min > limits.Electricity.Max {
		return nil, fmt.Errorf("electricity bounds inconsistent: min %d > max %d", limits.Electricity.Min, limits.Electricity.Max)
	}
	if limits.DataGranularityMB <= 0 {
		return nil, fmt.Errorf("data granularity must be positive, got %d", limits.DataGranularityMB)
	}
	if len(limits.Networks) == 0 {
		return nil, fmt.Errorf("network vocabulary is empty")
	}
	if len(limits.CableProviders) == 0 {
		return nil, fmt.Errorf("cable provider vocabulary is empty")
	}

	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Classifier{
		catalog: buildCatalog(limits),
		limits:  limits,
		logger:  log,
	}, nil
}

// Limits returns the bounds and vocabularies this classifier was built with.
func (c *Classifier) Limits() config.LimitsConfig {
	return c.limits
}

// Classify evaluates the text against the grammar catalog in priority order
// and returns the first match with its extracted parameters. It is total:
// every input produces a ParsedCommand, with Unknown as the terminal case.
// Malformed parameter values are reported inside the result, never as an
// error from this method.
func (c *Classifier) Classify(text string) *ParsedCommand {
	normalized := normalizeText(text)
	if normalized == "" {
		return c.unknown(text)
	}

	for i := range c.catalog {
		g := &c.catalog[i]
		if !g.matches(normalized) {
			continue
		}

		params := make(map[string]interface{}, len(g.params))
		var verr *ValidationError

		for _, pe := range g.params {
			if e := pe.extract(normalized, params); e != nil && verr == nil {
				verr = e
			}
		}

		if verr == nil {
			for _, pe := range g.params {
				if !pe.required {
					continue
				}
				if _, ok := params[pe.name]; !ok {
					verr = &ValidationError{
						Code:    errors.ErrCodeMissingParameter,
						Message: fmt.Sprintf("missing required parameter: %s", pe.name),
					}
					break
				}
			}
		}

		confidence := ConfidenceHigh
		if verr != nil {
			confidence = ConfidenceMedium
			params[ParamError] = verr
		}

		c.logger.Debug("message classified", map[string]interface{}{
			"commandType": g.commandType,
			"confidence":  confidence,
		})

		return &ParsedCommand{
			CommandType: g.commandType,
			RawText:     text,
			Confidence:  confidence,
			Parameters:  params,
		}
	}

	return c.unknown(text)
}

func (c *Classifier) unknown(text string) *ParsedCommand {
	c.logger.Debug("message not recognized", map[string]interface{}{
		"commandType": CommandUnknown,
	})
	return &ParsedCommand{
		CommandType: CommandUnknown,
		RawText:     text,
		Confidence:  ConfidenceLow,
		Parameters:  map[string]interface{}{},
	}
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
