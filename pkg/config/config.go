package config

// Config represents the complete configuration for an interactive
// evolution experiment.
type Config struct {
	// Archive configuration
	Archive ArchiveConfig `yaml:"archive" validate:"required"`

	// Fitness configuration
	Fitness FitnessConfig `yaml:"fitness,omitempty" validate:"omitempty"`

	// Emitter configuration
	Emitters EmittersConfig `yaml:"emitters,omitempty" validate:"omitempty"`

	// Experiment configuration
	Experiment ExperimentConfig `yaml:"experiment,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage,omitempty" validate:"omitempty"`
}

// ArchiveConfig holds the behavior-space grid parameters.
type ArchiveConfig struct {
	// Number of bins per behavior-descriptor dimension
	Bins int `yaml:"bins" validate:"required,min=1"`

	// Feasible population cap per cell (BIN_POP_SIZE)
	BinPopSize int `yaml:"bin_pop_size" validate:"required,min=1"`

	// Maximum generations a member may survive (CS_MAX_AGE)
	MaxAge int `yaml:"max_age" validate:"required,min=1"`

	// Whether the cell elite is exempt from age-based eviction
	EliteExemptFromAging bool `yaml:"elite_exempt_from_aging"`

	// Constant added to the fitness heatmap upper bound for novelty
	NoveltyScoreConstant float64 `yaml:"novelty_score_constant" validate:"min=0"`
}

// FitnessConfig holds fitness weighting and surrogate parameters.
type FitnessConfig struct {
	// Per-function weight overrides, keyed by registered name.
	// Unlisted functions default to weight 1.
	Weights map[string]float64 `yaml:"weights,omitempty"`

	// Surrogate estimator settings
	Surrogate SurrogateConfig `yaml:"surrogate,omitempty"`
}

// SurrogateConfig controls surrogate substitution for expensive
// fitness components.
type SurrogateConfig struct {
	// Enabled turns on surrogate prediction once trained
	Enabled bool `yaml:"enabled"`

	// RetrainInterval is the number of direct evaluations between refits
	RetrainInterval int `yaml:"retrain_interval" validate:"min=1"`

	// Ridge regularization strength
	Lambda float64 `yaml:"lambda" validate:"min=0"`
}

// EmittersConfig holds the emitter schedule and bandit parameters.
type EmittersConfig struct {
	// Schedule lists the emitter used for each experiment index
	// (random, human-preference, contextual-bandit)
	Schedule []string `yaml:"schedule" validate:"omitempty,dive,oneof=random human-preference contextual-bandit"`

	// Bandit policy configuration
	Bandit BanditConfig `yaml:"bandit,omitempty"`
}

// BanditConfig selects and tunes the contextual-bandit policy.
type BanditConfig struct {
	// Policy is the arm-selection rule (ucb1 or epsilon-greedy)
	Policy string `yaml:"policy" validate:"omitempty,oneof=ucb1 epsilon-greedy"`

	// Exploration constant for UCB1
	ExplorationC float64 `yaml:"exploration_c" validate:"min=0"`

	// Epsilon for epsilon-greedy
	Epsilon float64 `yaml:"epsilon" validate:"min=0,max=1"`
}

// ExperimentConfig holds session-level limits.
type ExperimentConfig struct {
	// Generations allowed per experiment
	GenerationsAllowed int `yaml:"generations_allowed" validate:"min=1"`

	// Offspring produced per generation step
	BatchSize int `yaml:"batch_size" validate:"min=1"`

	// Worker pool size for candidate evaluation
	MaxGoroutines int `yaml:"max_goroutines" validate:"min=1"`

	// RNG seed; 0 seeds from the clock
	Seed int64 `yaml:"seed"`
}

// LoggingConfig holds logging preferences.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR, FATAL
	Level string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`

	// Optional log file path
	File string `yaml:"file,omitempty"`

	// Size of the in-memory event feed
	RingSize int `yaml:"ring_size" validate:"min=0"`
}

// StorageConfig holds experiment persistence settings.
type StorageConfig struct {
	// SQLite database path; empty disables persistence
	Path string `yaml:"path,omitempty"`

	// Enable WAL journal mode
	EnableWAL bool `yaml:"enable_wal"`

	// Maximum open connections
	MaxConnections int `yaml:"max_connections" validate:"min=0"`
}
