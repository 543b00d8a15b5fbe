package internal

// Option configures Run and RunMCP.
type Option func(*application)

// application collects the runtime wiring assembled from options.
type application struct {
	config *Config
}

// WithConfig supplies the application configuration. It is required.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
