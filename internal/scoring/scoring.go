// Package scoring computes lead scores, deal values, and territory
// assignments from enriched records. All functions are pure; the weight,
// multiplier, and territory tables are configuration inputs so they can be
// validated and tested on their own.
package scoring

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync-cli/internal/model"
)

// Weights holds the additive score contributions. Seniority and Department
// are keyed by the lowercased bracket terms the enrichment service returns;
// a record scores the single best matching bracket per table.
type Weights struct {
	Seniority  map[string]int `yaml:"seniority" mapstructure:"seniority"`
	Department map[string]int `yaml:"department" mapstructure:"department"`
	EmailBonus int            `yaml:"email_bonus" mapstructure:"email_bonus"`
	PhoneBonus int            `yaml:"phone_bonus" mapstructure:"phone_bonus"`
}

// Validate rejects tables that cannot produce a 0-100 score.
func (w Weights) Validate() error {
	maxTotal := maxValue(w.Seniority) + maxValue(w.Department) + w.EmailBonus + w.PhoneBonus
	if maxTotal == 0 {
		return eris.New("scoring: weights table is empty")
	}
	if maxTotal > 100 {
		return eris.Errorf("scoring: maximum attainable score %d exceeds 100", maxTotal)
	}
	for k, v := range w.Seniority {
		if v < 0 {
			return eris.Errorf("scoring: negative seniority weight for %q", k)
		}
	}
	for k, v := range w.Department {
		if v < 0 {
			return eris.Errorf("scoring: negative department weight for %q", k)
		}
	}
	if w.EmailBonus < 0 || w.PhoneBonus < 0 {
		return eris.New("scoring: negative bonus")
	}
	return nil
}

// Multipliers scales the base deal value by seniority bracket (lowercased
// terms). TopicBonus is applied on top when the run context is flagged
// high-value (e.g. an enterprise webinar topic).
type Multipliers struct {
	Seniority  map[string]float64 `yaml:"seniority" mapstructure:"seniority"`
	TopicBonus float64            `yaml:"topic_bonus" mapstructure:"topic_bonus"`
}

// Validate rejects multipliers that would shrink or zero out deal values.
func (m Multipliers) Validate() error {
	for k, v := range m.Seniority {
		if v < 1 {
			return eris.Errorf("scoring: seniority multiplier for %q must be >= 1", k)
		}
	}
	if m.TopicBonus != 0 && m.TopicBonus < 1 {
		return eris.New("scoring: topic bonus must be >= 1")
	}
	return nil
}

// DefaultWeights mirrors the brackets the sales team scores on: C-suite
// and founders highest, then VP/head level, then managers.
func DefaultWeights() Weights {
	return Weights{
		Seniority: map[string]int{
			"c-level":      40,
			"c_suite":      40,
			"founder":      40,
			"board member": 40,
			"director":     30,
			"vp":           25,
			"head":         25,
			"owner":        25,
			"partner":      25,
			"manager":      15,
		},
		Department: map[string]int{
			"c suite":   20,
			"executive": 20,
			"finance":   15,
			"sales":     15,
			"it":        10,
		},
		EmailBonus: 10,
		PhoneBonus: 10,
	}
}

// DefaultMultipliers returns the standard deal-value multipliers.
func DefaultMultipliers() Multipliers {
	return Multipliers{
		Seniority: map[string]float64{
			"c-level":      3.0,
			"c_suite":      3.0,
			"founder":      3.0,
			"board member": 3.0,
			"vp":           2.5,
			"head":         2.5,
			"owner":        2.5,
			"partner":      2.5,
			"manager":      1.5,
		},
		TopicBonus: 1.5,
	}
}

// Score sums the weighted contributions for a record: best seniority
// bracket, best department bracket, validated-email bonus, and phone
// bonus. The result is clamped to 0-100.
func Score(rec model.EnrichedRecord, w Weights) int {
	score := bestMatch(rec.Seniorities, w.Seniority)
	score += bestMatch(rec.Departments, w.Department)
	if rec.Email != "" && rec.EmailValidated {
		score += w.EmailBonus
	}
	if rec.Phone != "" {
		score += w.PhoneBonus
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// DealValue estimates the deal value: base times the best seniority
// multiplier,
// with the topic bonus applied when highValue is set.
func DealValue(rec model.EnrichedRecord, base float64, m Multipliers, highValue bool) float64 {
	mult := 1.0
	for _, s := range rec.Seniorities {
		if v, ok := m.Seniority[normalize(s)]; ok && v > mult {
			mult = v
		}
	}
	value := base * mult
	if highValue && m.TopicBonus > 1 {
		value *= m.TopicBonus
	}
	return value
}

// AssignOwner picks the owner for the record's first department present in
// the territory table, falling back to defaultOwner. Table keys are
// matched case-insensitively.
func AssignOwner(rec model.EnrichedRecord, territory map[string]string, defaultOwner string) string {
	for _, dept := range rec.Departments {
		for k, owner := range territory {
			if normalize(k) == normalize(dept) {
				return owner
			}
		}
	}
	return defaultOwner
}

// bestMatch returns the highest table weight among the record's terms.
func bestMatch(terms []string, table map[string]int) int {
	best := 0
	for _, t := range terms {
		if v, ok := table[normalize(t)]; ok && v > best {
			best = v
		}
	}
	return best
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func maxValue(table map[string]int) int {
	best := 0
	for _, v := range table {
		if v > best {
			best = v
		}
	}
	return best
}
