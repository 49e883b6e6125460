package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Maximum number of words per study session
	SessionLimit int
	// Defaults applied when a user starts a plan without tuning it
	DefaultDailyNew    int
	DefaultDailyReview int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		SessionLimit:       20,
		DefaultDailyNew:    20,
		DefaultDailyReview: 100,
	}
}
