package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadsync-cli/internal/scoring"
)

// scoringTables is the YAML shape of a tables override file.
type scoringTables struct {
	Weights     *scoring.Weights     `yaml:"weights"`
	Multipliers *scoring.Multipliers `yaml:"multipliers"`
	Territory   map[string]string    `yaml:"territory"`
}

// resolveTables fills empty scoring tables with the built-in defaults,
// applies the TablesFile override when set, and validates the result.
func (c *ScoringConfig) resolveTables() error {
	if len(c.Weights.Seniority) == 0 && len(c.Weights.Department) == 0 {
		c.Weights = scoring.DefaultWeights()
	}
	if len(c.Multipliers.Seniority) == 0 {
		c.Multipliers = scoring.DefaultMultipliers()
	}

	if c.TablesFile != "" {
		tables, err := loadTables(c.TablesFile)
		if err != nil {
			return err
		}
		if tables.Weights != nil {
			c.Weights = *tables.Weights
		}
		if tables.Multipliers != nil {
			c.Multipliers = *tables.Multipliers
		}
		if tables.Territory != nil {
			c.Territory = tables.Territory
		}
	}

	if err := c.Weights.Validate(); err != nil {
		return err
	}
	return c.Multipliers.Validate()
}

// loadTables parses a scoring tables YAML file.
func loadTables(path string) (*scoringTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "config: read tables file")
	}
	var tables scoringTables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, eris.Wrap(err, "config: parse tables file")
	}
	return &tables, nil
}
