// internal/intent/grammar.go
package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
)

// A grammar associates one command type with its trigger patterns and
// parameter extractors. The catalog is an ordered list of grammars; order
// is the priority order and the first trigger match wins.
type grammar struct {
	commandType CommandType
	triggers    []*regexp.Regexp
	params      []paramExtractor
}

func (g *grammar) matches(text string) bool {
	for _, t := range g.triggers {
		if t.MatchString(text) {
			return true
		}
	}
	return false
}

// paramExtractor pulls one parameter out of the message text. Extractors run
// independently over the same input; an extractor either stores a normalized
// value under its name, returns a ValidationError for a present-but-unusable
// value, or does neither when the parameter is simply absent.
type paramExtractor struct {
	name     string
	required bool
	extract  func(text string, params map[string]interface{}) *ValidationError
}

var (
	numberPattern   = regexp.MustCompile(`\d[\d,]*`)
	phoneRunPattern = regexp.MustCompile(`\d{10,}`)
	dataSizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(gb|mb|gig|meg)s?\b`)
	dataUnitSuffix  = regexp.MustCompile(`^\s*(?:gb|mb|gig|meg)s?\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// buildCatalog constructs the grammar list for one bounds/vocabulary set.
// Several grammars share keywords ("buy" appears in airtime, data and
// electricity messages), so disambiguation relies on pattern specificity
// plus the declaration order here.
func buildCatalog(limits config.LimitsConfig) []grammar {
	networkAlt := vocabularyPattern(limits.Networks)
	cableAlt := vocabularyPattern(limits.CableProviders)

	return []grammar{
		{
			commandType: CommandGreeting,
			triggers:    compileAll(`^(?:hi|hello|hey|start|good\s*(?:morning|afternoon|evening))$`),
		},
		{
			commandType: CommandHelp,
			triggers:    compileAll(`^(?:help|menu|options|commands|what can you do)$`),
		},
		{
			commandType: CommandBalanceCheck,
			triggers:    compileAll(`^(?:balance|check balance|my balance|wallet|check wallet|bal)$`),
		},
		{
			commandType: CommandAirtimePurchase,
			triggers: compileAll(
				`\bairtime\b`,
				`\b(?:recharge|top\s*up)\s+\S+`,
			),
			params: []paramExtractor{
				{name: ParamAmount, required: true, extract: amountExtractor(limits.Airtime)},
				{name: ParamPhone, extract: phoneExtractor},
			},
		},
		{
			commandType: CommandDataPurchase,
			triggers: compileAll(
				`^(?:buy\s+data|get\s+data|data\s+bundles?|data)$`,
				`\b\d+(?:\.\d+)?\s*(?:gb|mb|gig|meg)s?\b`,
			),
			params: []paramExtractor{
				{name: ParamNetwork, required: true, extract: vocabularyExtractor(ParamNetwork, networkAlt)},
				{name: ParamDataSizeMB, required: true, extract: dataSizeExtractor(limits.DataGranularityMB)},
				{name: ParamPhone, extract: phoneExtractor},
			},
		},
		{
			commandType: CommandElectricityPayment,
			triggers: compileAll(
				`^(?:buy\s+electricity|electricity|light\s+bill|pay\s+light|nepa|ekedc|ikedc)$`,
				`\b(?:buy|pay)\s+\d[\d,]*\s+(?:electricity|light)\b`,
				`\b\d[\d,]*\s+(?:naira\s+)?(?:electricity|light)\b`,
			),
			params: []paramExtractor{
				{name: ParamAmount, required: true, extract: amountExtractor(limits.Electricity)},
			},
		},
		{
			commandType: CommandCableSubscription,
			triggers: compileAll(
				`^(?:cable|tv|`+cableAlt+`)$`,
				`\b(?:pay|subscribe|renew)\s+(?:`+cableAlt+`)\b`,
			),
			params: []paramExtractor{
				{name: ParamProvider, required: true, extract: vocabularyExtractor(ParamProvider, cableAlt)},
			},
		},
		{
			commandType: CommandTransactionHistory,
			triggers:    compileAll(`^(?:history|transactions|my transactions|transaction history|txn|txns)$`),
		},
		{
			commandType: CommandReferralInfo,
			triggers:    compileAll(`^(?:referral|refer|my referral|referral code|invite|ref code)$`),
		},
	}
}

func vocabularyPattern(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
	}
	return strings.Join(quoted, "|")
}

// amountExtractor finds the first standalone number in the text and
// normalizes it against the given bounds. Digit runs that look like phone
// numbers or that carry a data-size unit are skipped so "buy 1000 airtime
// for 08012345678" extracts 1000, not the phone number.
func amountExtractor(bounds config.AmountBounds) func(string, map[string]interface{}) *ValidationError {
	return func(text string, params map[string]interface{}) *ValidationError {
		for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
			candidate := text[loc[0]:loc[1]]
			digits := strings.ReplaceAll(candidate, ",", "")
			if len(digits) >= 10 {
				continue
			}
			if dataUnitSuffix.MatchString(text[loc[1]:]) {
				continue
			}

			amount, verr := NormalizeAmount(candidate, bounds)
			if verr != nil {
				return verr
			}
			params[ParamAmount] = amount
			return nil
		}
		return nil
	}
}

// phoneExtractor finds the first long digit run and normalizes it to
// canonical form. A run that cannot be normalized is a validation error,
// not a silent skip, so the user learns the phone number was malformed.
func phoneExtractor(text string, params map[string]interface{}) *ValidationError {
	run := phoneRunPattern.FindString(text)
	if run == "" {
		return nil
	}
	phone, verr := NormalizePhone(run)
	if verr != nil {
		return verr
	}
	params[ParamPhone] = phone
	return nil
}

func dataSizeExtractor(granularityMB int) func(string, map[string]interface{}) *ValidationError {
	return func(text string, params map[string]interface{}) *ValidationError {
		m := dataSizePattern.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return &ValidationError{
				Code:    errors.ErrCodeNotNumeric,
				Message: fmt.Sprintf("not a valid data size: %s", m[1]),
			}
		}
		mb, err := NormalizeDataSize(value, m[2], granularityMB)
		if err != nil {
			return &ValidationError{
				Code:    errors.ErrCodeNotNumeric,
				Message: err.Error(),
			}
		}
		params[ParamDataSizeMB] = mb
		params[ParamDataSizeDisplay] = FormatDataSize(mb)
		return nil
	}
}

// vocabularyExtractor matches one word from a fixed vocabulary. Misspelled
// names do not match and the parameter stays absent; there is no fuzzy
// matching.
func vocabularyExtractor(name, alternation string) func(string, map[string]interface{}) *ValidationError {
	pattern := regexp.MustCompile(`\b(?:` + alternation + `)\b`)
	return func(text string, params map[string]interface{}) *ValidationError {
		match := pattern.FindString(text)
		if match == "" {
			return nil
		}
		params[name] = match
		return nil
	}
}
