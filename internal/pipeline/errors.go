package pipeline

// ConfigurationError reports an invalid request: a phase index outside
// the enumerated set, or a mode count outside [1, available].
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}
