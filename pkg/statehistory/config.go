package statehistory

// Config controls the current-state resolution policy.
// Fields are populated from the environment via pkg/config.
type Config struct {
	UseCurrentColumns   bool   `env:"STATE_HISTORY_USE_CURRENT_COLUMNS" envDefault:"true"`    // UseCurrentColumns enables the denormalized current_<field> columns.
	CurrentColumnPrefix string `env:"STATE_HISTORY_CURRENT_PREFIX" envDefault:"current_"`     // CurrentColumnPrefix is prepended to the field name to form the current column.
	LogFallbackWarnings bool   `env:"STATE_HISTORY_LOG_FALLBACK_WARNINGS" envDefault:"true"`  // LogFallbackWarnings logs a warning when a current column is missing.
	HistoryTable        string `env:"STATE_HISTORY_TABLE" envDefault:"model_states"`           // HistoryTable is the table or collection holding history records.
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		UseCurrentColumns:   true,
		CurrentColumnPrefix: "current_",
		LogFallbackWarnings: true,
		HistoryTable:        "model_states",
	}
}

// CurrentColumn returns the denormalized column name for a field.
func (c Config) CurrentColumn(field string) string {
	return c.CurrentColumnPrefix + field
}
