package telemetry

// Config controls tracing for one CLI invocation.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// BackendURL is recorded on the resource so traces from different
	// backends can be told apart.
	BackendURL string

	// Enabled switches from the noop provider to the SDK.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector (host:port). Empty keeps spans
	// in process.
	Endpoint string
	Insecure bool

	// SampleRate is the sampled fraction of traces, 0 to 1.
	SampleRate float64
}

// DefaultConfig has tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "taleyport",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}

func (c Config) sampler() float64 {
	switch {
	case c.SampleRate <= 0:
		return 0
	case c.SampleRate > 1:
		return 1
	}
	return c.SampleRate
}
