package config

// Emitter names accepted in the schedule.
const (
	EmitterRandom           = "random"
	EmitterHumanPreference  = "human-preference"
	EmitterContextualBandit = "contextual-bandit"
)

// GetDefaultConfig returns the default experiment configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Bins:                 8,
			BinPopSize:           5,
			MaxAge:               10,
			EliteExemptFromAging: true,
			NoveltyScoreConstant: 0.5,
		},
		Fitness: FitnessConfig{
			Weights: map[string]float64{},
			Surrogate: SurrogateConfig{
				Enabled:         false,
				RetrainInterval: 20,
				Lambda:          0.1,
			},
		},
		Emitters: EmittersConfig{
			Schedule: []string{
				EmitterRandom,
				EmitterHumanPreference,
				EmitterContextualBandit,
			},
			Bandit: BanditConfig{
				Policy:       "ucb1",
				ExplorationC: 1.4142135623730951, // sqrt(2)
				Epsilon:      0.2,
			},
		},
		Experiment: ExperimentConfig{
			GenerationsAllowed: 25,
			BatchSize:          4,
			MaxGoroutines:      8,
			Seed:               0,
		},
		Logging: LoggingConfig{
			Level:    "INFO",
			RingSize: 256,
		},
		Storage: StorageConfig{
			Path:           "",
			EnableWAL:      true,
			MaxConnections: 4,
		},
	}
}
