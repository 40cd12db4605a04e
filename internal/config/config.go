package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oappleby/plotsat/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Cluster  ClusterConfig  `yaml:"cluster" mapstructure:"cluster"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Manifest ManifestConfig `yaml:"manifest" mapstructure:"manifest"`
	Drive    DriveConfig    `yaml:"drive" mapstructure:"drive"`
	FTP      FTPConfig      `yaml:"ftp" mapstructure:"ftp"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig names the columns of the plot table.
type InputConfig struct {
	IDColumn        string `yaml:"id_column" mapstructure:"id_column"`
	XColumn         string `yaml:"x_column" mapstructure:"x_column"`
	YColumn         string `yaml:"y_column" mapstructure:"y_column"`
	CompositionMode string `yaml:"composition_mode" mapstructure:"composition_mode"`
}

// ClusterConfig holds clustering defaults. Epsilon has no default; it is
// data-dependent and must come from the flag or the config file.
type ClusterConfig struct {
	Epsilon             float64 `yaml:"epsilon" mapstructure:"epsilon"`
	MinPoints           int     `yaml:"min_points" mapstructure:"min_points"`
	ProportionTolerance float64 `yaml:"proportion_tolerance" mapstructure:"proportion_tolerance"`
}

// ExportConfig selects the chunk listing source.
type ExportConfig struct {
	Source   string `yaml:"source" mapstructure:"source"`
	LocalDir string `yaml:"local_dir" mapstructure:"local_dir"`
}

// ManifestConfig supplies job-file defaults.
type ManifestConfig struct {
	FolderPrefix string `yaml:"folder_prefix" mapstructure:"folder_prefix"`
	ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	FilePattern  string `yaml:"file_pattern" mapstructure:"file_pattern"`
}

// DriveConfig holds Google Drive API settings.
type DriveConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Token        string `yaml:"token" mapstructure:"token"`
	TokenFile    string `yaml:"token_file" mapstructure:"token_file"`
	ParentFolder string `yaml:"parent_folder" mapstructure:"parent_folder"`
	PageSize     int    `yaml:"page_size" mapstructure:"page_size"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FTPConfig holds FTP export host settings.
type FTPConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	BasePath    string `yaml:"base_path" mapstructure:"base_path"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RetryConfig bounds the retry budget for remote listings.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// StoreConfig configures the snapshot history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLOTSAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.id_column", "plot_id")
	v.SetDefault("input.x_column", "x")
	v.SetDefault("input.y_column", "y")
	v.SetDefault("input.composition_mode", "proportion")
	v.SetDefault("cluster.min_points", 4)
	v.SetDefault("cluster.proportion_tolerance", 0.01)
	v.SetDefault("export.source", "local")
	v.SetDefault("manifest.folder_prefix", "Greenbelts_S2")
	v.SetDefault("manifest.chunk_size", 500)
	v.SetDefault("drive.base_url", "https://www.googleapis.com/drive/v3")
	v.SetDefault("drive.page_size", 100)
	v.SetDefault("drive.timeout_secs", 60)
	v.SetDefault("ftp.user", "anonymous")
	v.SetDefault("ftp.password", "anonymous")
	v.SetDefault("ftp.timeout_secs", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed by the given mode. Modes are
// "cluster", "export-local", "export-drive", "export-ftp" and "history".
// All problems found are reported together as a ConfigurationError.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "cluster":
		if c.Input.IDColumn == "" {
			problems = append(problems, "input.id_column is required")
		}
		if c.Input.XColumn == "" {
			problems = append(problems, "input.x_column is required")
		}
		if c.Input.YColumn == "" {
			problems = append(problems, "input.y_column is required")
		}
		if m := c.Input.CompositionMode; m != "proportion" && m != "count" {
			problems = append(problems, "input.composition_mode must be proportion or count")
		}
		if c.Cluster.MinPoints < 1 {
			problems = append(problems, "cluster.min_points must be >= 1")
		}
		if c.Cluster.ProportionTolerance < 0 {
			problems = append(problems, "cluster.proportion_tolerance must be >= 0")
		}
	case "export-local":
		problems = append(problems, c.validateManifest()...)
		if c.Export.LocalDir == "" {
			problems = append(problems, "export.local_dir is required")
		}
	case "export-drive":
		problems = append(problems, c.validateManifest()...)
		problems = append(problems, c.validateRetry()...)
		if c.Drive.Token == "" && c.Drive.TokenFile == "" {
			problems = append(problems, "drive.token or drive.token_file is required")
		}
		if c.Drive.BaseURL == "" {
			problems = append(problems, "drive.base_url is required")
		}
		if c.Drive.PageSize < 1 || c.Drive.PageSize > 1000 {
			problems = append(problems, "drive.page_size must be between 1 and 1000")
		}
		if c.Drive.TimeoutSecs <= 0 {
			problems = append(problems, "drive.timeout_secs must be > 0")
		}
	case "export-ftp":
		problems = append(problems, c.validateManifest()...)
		problems = append(problems, c.validateRetry()...)
		if c.FTP.Addr == "" {
			problems = append(problems, "ftp.addr is required")
		}
		if c.FTP.TimeoutSecs <= 0 {
			problems = append(problems, "ftp.timeout_secs must be > 0")
		}
	case "history":
		switch c.Store.Driver {
		case "sqlite":
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	default:
		return &model.ConfigurationError{Param: "mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}

	if len(problems) > 0 {
		return &model.ConfigurationError{Reason: strings.Join(problems, "; ")}
	}
	return nil
}

func (c *Config) validateManifest() []string {
	var problems []string
	if c.Manifest.FolderPrefix == "" {
		problems = append(problems, "manifest.folder_prefix is required")
	}
	if c.Manifest.ChunkSize < 1 {
		problems = append(problems, "manifest.chunk_size must be >= 1")
	}
	return problems
}

func (c *Config) validateRetry() []string {
	var problems []string
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be >= 1")
	}
	if c.Retry.InitialBackoffMS < 0 || c.Retry.MaxBackoffMS < 0 {
		problems = append(problems, "retry backoffs must be >= 0")
	}
	return problems
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
