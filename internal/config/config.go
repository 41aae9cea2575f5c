package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Eschol   EscholConfig   `yaml:"eschol"`
	Deposit  DepositConfig  `yaml:"deposit"`
	Render   RenderConfig   `yaml:"render"`
	EZID     EZIDConfig     `yaml:"ezid"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// EscholConfig holds the eScholarship API settings. APIURL left empty means
// the connector runs unconfigured: deposits are assembled and logged but not
// transmitted, which is the expected state outside production.
type EscholConfig struct {
	APIURL        string        `yaml:"api_url"        env:"ESCHOL_API_URL"`
	AccessToken   string        `yaml:"access_token"   env:"ESCHOL_ACCESS_TOKEN"`
	PrivilegedKey string        `yaml:"privileged_key" env:"ESCHOL_PRIV_KEY"`
	BaseURL       string        `yaml:"base_url"       env:"ESCHOL_BASE_URL"     env-default:"https://escholarship.org/"`
	Timeout       time.Duration `yaml:"timeout"        env:"ESCHOL_TIMEOUT"      env-default:"30s"`
	RetryDelay    time.Duration `yaml:"retry_delay"    env:"ESCHOL_RETRY_DELAY"  env-default:"10s"`
}

// Configured reports whether an API endpoint is present. The deposit
// pipeline treats the unconfigured state as an expected, recorded outcome.
func (c EscholConfig) Configured() bool { return c.APIURL != "" }

// DepositConfig holds source-identification settings for assembled items.
type DepositConfig struct {
	SourceName     string `yaml:"source_name"     env:"DEPOSIT_SOURCE_NAME"     env-default:"janeway"`
	PlaceholderArk string `yaml:"placeholder_ark" env:"DEPOSIT_PLACEHOLDER_ARK" env-default:"ark:/13030/qtXXXXXXXX"`
}

// RenderConfig holds galley rendering settings.
type RenderConfig struct {
	// PublicBaseURL fronts the signed file-download endpoint in generated
	// fetch links, e.g. "https://journal.example.org".
	PublicBaseURL   string `yaml:"public_base_url"   env:"RENDER_PUBLIC_BASE_URL"   env-required:"true"`
	FilesDir        string `yaml:"files_dir"         env:"RENDER_FILES_DIR"         env-default:"./files"`
	DefaultXSLLabel string `yaml:"default_xsl_label" env:"RENDER_DEFAULT_XSL_LABEL" env-default:"default"`
	XSLTProcPath    string `yaml:"xsltproc_path"     env:"RENDER_XSLTPROC_PATH"     env-default:"xsltproc"`
	XMLLintPath     string `yaml:"xmllint_path"      env:"RENDER_XMLLINT_PATH"      env-default:"xmllint"`
}

// EZIDConfig holds the optional DOI-registration collaborator settings.
// When Endpoint is empty the no-op registrar is wired instead.
type EZIDConfig struct {
	Endpoint string        `yaml:"endpoint" env:"EZID_ENDPOINT"`
	Shoulder string        `yaml:"shoulder" env:"EZID_SHOULDER"`
	Username string        `yaml:"username" env:"EZID_USERNAME"`
	Password string        `yaml:"password" env:"EZID_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout"  env:"EZID_TIMEOUT"  env-default:"20s"`
}

// Configured reports whether the DOI collaborator is deployed alongside us.
func (c EZIDConfig) Configured() bool { return c.Endpoint != "" }

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
