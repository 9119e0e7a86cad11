package intent

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Extractor turns a free-text prompt into canonical slot values. Slots that
// are not recognised are absent from the result; that is not an error.
type Extractor interface {
	Extract(ctx context.Context, prompt string) (Entities, error)
}

// ProjectCatalog lists the known project names used to normalise captured
// project references.
type ProjectCatalog interface {
	ProjectNames(ctx context.Context) ([]string, error)
}

// Matcher is one pattern strategy for a slot. When Value is set it is
// emitted instead of the captured group.
type Matcher struct {
	Pattern *regexp.Regexp
	Group   int
	Value   string
}

func (m Matcher) match(prompt string) (string, bool) {
	sub := m.Pattern.FindStringSubmatch(prompt)
	if sub == nil {
		return "", false
	}
	if m.Value != "" {
		return m.Value, true
	}
	if m.Group >= len(sub) {
		return "", false
	}
	v := cleanCapture(sub[m.Group])
	return v, v != ""
}

// SlotMatchers is the ordered strategy list for one slot.
type SlotMatchers struct {
	Slot      string
	Matchers  []Matcher
	Normalize func(string) string
}

// RegexExtractor applies an ordered list of matchers per slot; the first
// matcher that captures a non-empty value wins for that slot.
type RegexExtractor struct {
	slots  []SlotMatchers
	logger *zap.Logger
}

// NewRegexExtractor builds an extractor over DefaultMatchers.
func NewRegexExtractor(logger *zap.Logger) *RegexExtractor {
	return NewRegexExtractorWith(DefaultMatchers(), logger)
}

func NewRegexExtractorWith(slots []SlotMatchers, logger *zap.Logger) *RegexExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegexExtractor{slots: slots, logger: logger}
}

func (x *RegexExtractor) Extract(_ context.Context, prompt string) (Entities, error) {
	text := strings.TrimSpace(prompt)
	out := Entities{}
	if text == "" {
		return out, nil
	}
	for _, sm := range x.slots {
		for i, m := range sm.Matchers {
			v, ok := m.match(text)
			if !ok {
				continue
			}
			if sm.Normalize != nil {
				v = sm.Normalize(v)
			}
			if v == "" {
				continue
			}
			x.logger.Debug("slot matched",
				zap.String("slot", sm.Slot),
				zap.Int("matcher", i),
				zap.String("value", v))
			out[sm.Slot] = v
			break
		}
	}
	return out, nil
}

// CatalogExtractor snaps the project slot produced by Next onto a known
// project name. When Next captured none, a known name appearing as whole
// words in the prompt is reported under SlotProjectMention; ResolveMention
// decides whether it may fill the project.
type CatalogExtractor struct {
	Next    Extractor
	Catalog ProjectCatalog
	Logger  *zap.Logger
}

func (x CatalogExtractor) Extract(ctx context.Context, prompt string) (Entities, error) {
	out, err := x.Next.Extract(ctx, prompt)
	if err != nil || x.Catalog == nil {
		return out, err
	}
	logger := x.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	names, err := x.Catalog.ProjectNames(ctx)
	if err != nil {
		logger.Warn("project catalog unavailable", zap.Error(err))
		return out, nil
	}
	if captured, ok := out[SlotProject]; ok {
		if i, found := MatchName(captured, names); found && names[i] != captured {
			logger.Debug("project normalised", zap.String("captured", captured), zap.String("project", names[i]))
			out[SlotProject] = names[i]
		}
		return out, nil
	}
	if name := scanForName(prompt, names); name != "" {
		logger.Debug("project mentioned by name", zap.String("project", name))
		out[SlotProjectMention] = name
	}
	return out, nil
}

// scanForName returns the longest known name that appears in text as whole
// words, ignoring case and spacing.
func scanForName(text string, names []string) string {
	best := ""
	for _, n := range names {
		words := strings.Fields(n)
		if len(words) == 0 || len(strings.Join(words, " ")) < minContainedLen {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		pattern := `(?i)(?:^|[^\p{L}\p{N}_])` + strings.Join(words, `\s+`) + `(?:$|[^\p{L}\p{N}_])`
		if !regexp.MustCompile(pattern).MatchString(text) {
			continue
		}
		if len(n) > len(best) {
			best = n
		}
	}
	return best
}

// ResolveMention folds a name-scan hit into the project slot only when
// neither the prior state nor this turn's extraction names a project.
// The mention key never survives into the result.
func ResolveMention(prior, extracted Entities) Entities {
	mention, ok := extracted[SlotProjectMention]
	if !ok {
		return extracted
	}
	out := extracted.Clone()
	delete(out, SlotProjectMention)
	if !prior.Has(SlotProject) && !out.Has(SlotProject) {
		out[SlotProject] = mention
	}
	return out
}

func cleanCapture(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'“”‘’`)
	s = strings.TrimRight(s, ".,;:!? ")
	return strings.Join(strings.Fields(s), " ")
}
