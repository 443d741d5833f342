package config

// DefaultNodeURI is the endpoint used when none is configured.
const DefaultNodeURI = "http://localhost:8000/graphql"

// DefaultTimeout is the request timeout in seconds.
const DefaultTimeout = 10

// Default returns the default client configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Node: NodeConfig{
			URI:     DefaultNodeURI,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
