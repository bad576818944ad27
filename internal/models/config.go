package models

// ConfigError reports an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

// APIConfig locates the messaging backend and identifies the current user.
type APIConfig struct {
	BaseURL    string `json:"baseUrl"`
	AuthToken  string `json:"authToken"`
	UserID     string `json:"userId"`
	TimeoutSec int    `json:"timeoutSec"`
}

// ClientConfig tunes the thread view and unread badge behaviour.
type ClientConfig struct {
	PageSize              int `json:"pageSize"`
	UnreadPollIntervalSec int `json:"unreadPollIntervalSec"`
}

// ServerConfig configures the reference dev server.
type ServerConfig struct {
	Port      int               `json:"port"`
	DBPath    string            `json:"dbPath"`
	UploadDir string            `json:"uploadDir"`
	// Tokens maps bearer tokens to user ids. When empty the server trusts
	// the X-User-ID header, which keeps local testing friction-free.
	Tokens map[string]string `json:"tokens"`
	Users  []User            `json:"users"`
}

// TracingConfig is mapped onto the tracing manager's own config by the cmd
// layer.
type TracingConfig struct {
	Enabled      bool    `json:"enabled"`
	UseStdout    bool    `json:"useStdout"`
	OTLPEndpoint string  `json:"otlpEndpoint"`
	SampleRate   float64 `json:"sampleRate"`
}

// Config is the top-level configuration file shape.
type Config struct {
	API      APIConfig     `json:"api"`
	Client   ClientConfig  `json:"client"`
	Server   ServerConfig  `json:"server"`
	Tracing  TracingConfig `json:"tracing"`
	LogLevel string        `json:"logLevel"`
}
