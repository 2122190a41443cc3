package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config holds all sqlsleuth configuration. Every heuristic weight and
// threshold the engine uses lives here rather than scattered across files,
// so tuning a band or a cap is a config change, not a code change.
type Config struct {
	DBURL          string            `yaml:"db_url"`
	Search         Search            `yaml:"search"`
	Tuning         Tuning            `yaml:"tuning"`
	ModelOverrides map[string]string `yaml:"model_overrides"` // table name -> model name
	Defaults       Defaults          `yaml:"defaults"`
}

// Search controls where and how source code is searched.
type Search struct {
	AppDirs     []string `yaml:"app_dirs"`     // application/library source roots
	ModelDirs   []string `yaml:"model_dirs"`   // where model files live
	ExcludeDirs []string `yaml:"exclude_dirs"` // never searched
	Extensions  []string `yaml:"extensions"`
	Workers     int      `yaml:"workers"`     // 0 = NumCPU
	MaxResults  int      `yaml:"max_results"` // hard cap per search invocation
	Timeout     string   `yaml:"timeout"`     // per external-search budget

	ContextBefore      int `yaml:"context_before"`      // lines above a hit
	ContextAfter       int `yaml:"context_after"`       // lines below a hit
	TransactionContext int `yaml:"transaction_context"` // trailing lines for transaction blocks
}

// Weights distribute confidence across clause categories. Each category
// contributes only when the query itself has that clause. Must sum to 1.
type Weights struct {
	Where           float64 `yaml:"where"`
	Order           float64 `yaml:"order"`
	Limit           float64 `yaml:"limit"`
	Offset          float64 `yaml:"offset"`
	Distinctiveness float64 `yaml:"distinctiveness"`
}

// Validate checks that the weights form a distribution.
func (w Weights) Validate() error {
	sum := w.Where + w.Order + w.Limit + w.Offset + w.Distinctiveness
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("scoring weights sum to %.3f, want 1.0", sum)
	}
	return nil
}

// Bands map a confidence score to its label. Scores at or above High are
// "high", and so on down; below Partial is "low".
type Bands struct {
	High    float64 `yaml:"high"`
	Medium  float64 `yaml:"medium"`
	Partial float64 `yaml:"partial"`
}

// Caps are hard ceilings applied after the weighted sum. A candidate with a
// missing WHERE condition can never look like an exact match no matter how
// well its other clauses score.
type Caps struct {
	MissingWhere     float64 `yaml:"missing_where"`  // any query condition unmatched
	MissingOrder     float64 `yaml:"missing_order"`  // ORDER missing while query paginates
	BadPagination    float64 `yaml:"bad_pagination"` // incompatible LIMIT/OFFSET values
	ManyMissing      float64 `yaml:"many_missing"`   // ManyMissingCount or more clauses missing
	ManyMissingCount int     `yaml:"many_missing_count"`
}

// Distinctiveness assigns the rarity score of each pattern kind. Rarer
// patterns are searched first to narrow the candidate space quickly.
type Distinctiveness struct {
	ExactLimitValue float64 `yaml:"exact_limit_value"` // e.g. "500" as a literal
	LimitCall       float64 `yaml:"limit_call"`        // .limit(500)
	Constant        float64 `yaml:"constant"`          // SOME_COND-style fragment constant
	OffsetCall      float64 `yaml:"offset_call"`
	ScopeCall       float64 `yaml:"scope_call"` // .for_company, .by_owner usage
	ScopeDef        float64 `yaml:"scope_def"`  // scope :name declaration
	OrderColumn     float64 `yaml:"order_column"`
	GenericLimit    float64 `yaml:"generic_limit"`
	GenericOrder    float64 `yaml:"generic_order"`
}

// Signature controls transaction-wrapper scoring.
type Signature struct {
	MinColumns       int      `yaml:"min_columns"` // floor for the match threshold
	Fraction         float64  `yaml:"fraction"`    // fraction of signature required
	DistinctiveBonus float64  `yaml:"distinctive_bonus"`
	GenericNames     []string `yaml:"generic_names"` // extra names treated as generic
	MaxCallbacks     int      `yaml:"max_callbacks"`
	MaxBlocks        int      `yaml:"max_blocks"`
}

// Tuning gathers every heuristic parameter in one structure passed into the
// engine.
type Tuning struct {
	Weights         Weights         `yaml:"weights"`
	Bands           Bands           `yaml:"bands"`
	Caps            Caps            `yaml:"caps"`
	Distinctiveness Distinctiveness `yaml:"distinctiveness"`
	Signature       Signature       `yaml:"signature"`
	AcceptThreshold int             `yaml:"accept_threshold"` // staged-search hit ceiling
	RefineMax       int             `yaml:"refine_max"`       // complementary patterns per pass
	ExtraPenalty    float64         `yaml:"extra_penalty"`    // multiplier strength for extra conditions
}

// Defaults holds default CLI flag values.
type Defaults struct {
	Format  string `yaml:"format"`
	Timeout string `yaml:"timeout"` // parsed as time.Duration
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Search: Search{
			AppDirs:     []string{"app", "lib"},
			ModelDirs:   []string{"app/models"},
			ExcludeDirs: []string{"test", "spec", "features", "vendor", "config", "db/migrate", "node_modules", "tmp", "log"},
			Extensions:  []string{".rb", ".erb", ".rake", ".haml", ".slim"},
			MaxResults:  200,
			Timeout:     "10s",

			ContextBefore:      4,
			ContextAfter:       2,
			TransactionContext: 30,
		},
		Tuning: Tuning{
			Weights: Weights{
				Where:           0.60,
				Order:           0.15,
				Limit:           0.10,
				Offset:          0.10,
				Distinctiveness: 0.05,
			},
			Bands: Bands{High: 0.9, Medium: 0.7, Partial: 0.4},
			Caps: Caps{
				MissingWhere:     0.40,
				MissingOrder:     0.60,
				BadPagination:    0.50,
				ManyMissing:      0.25,
				ManyMissingCount: 3,
			},
			Distinctiveness: Distinctiveness{
				ExactLimitValue: 0.9,
				LimitCall:       0.85,
				Constant:        0.8,
				OffsetCall:      0.7,
				ScopeCall:       0.7,
				ScopeDef:        0.6,
				OrderColumn:     0.6,
				GenericLimit:    0.5,
				GenericOrder:    0.4,
			},
			Signature: Signature{
				MinColumns:       3,
				Fraction:         0.4,
				DistinctiveBonus: 0.5,
				MaxCallbacks:     2,
				MaxBlocks:        10,
			},
			AcceptThreshold: 20,
			RefineMax:       3,
			ExtraPenalty:    0.5,
		},
		Defaults: Defaults{
			Format:  "text",
			Timeout: "60s",
		},
	}
}

// Load reads configuration from .sqlsleuth.yml in the given directory,
// falling back to ~/.sqlsleuth.yml. Returns DefaultConfig if no file found.
func Load(dir string) (Config, error) {
	cfg := DefaultConfig()

	paths := []string{filepath.Join(dir, ".sqlsleuth.yml")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".sqlsleuth.yml"))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
		if err := cfg.Tuning.Weights.Validate(); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	}

	return cfg, nil
}

// TimeoutDuration parses the Defaults.Timeout string as a time.Duration.
// Returns 60s if parsing fails.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Defaults.Timeout == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(c.Defaults.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// SearchTimeout parses the per-search budget. Returns 10s if unset or invalid.
func (c *Config) SearchTimeout() time.Duration {
	if c.Search.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ModelFor maps a table name to its model name, honoring per-project
// overrides before the conventional inflection.
func (c *Config) ModelFor(table string, fallback func(string) string) string {
	if m, ok := c.ModelOverrides[table]; ok {
		return m
	}
	return fallback(table)
}
