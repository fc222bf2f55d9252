package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config is the effective drvstore configuration.
type Config struct {
	Backend               string `mapstructure:"backend"`
	ImagePath             string `mapstructure:"image_path"`
	WindowsDir            string `mapstructure:"windows_dir"`
	PnputilPath           string `mapstructure:"pnputil_path"`
	PnputilTimeoutSeconds int    `mapstructure:"pnputil_timeout_seconds"`
	DeviceSource          string `mapstructure:"device_source"`
	UseBackupPrivilege    bool   `mapstructure:"use_backup_privilege"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// AuditFile enables the change journal when set.
	AuditFile       string `mapstructure:"audit_file"`
	AuditMaxSizeMB  int    `mapstructure:"audit_max_size_mb"`
	AuditMaxBackups int    `mapstructure:"audit_max_backups"`

	Export ExportConfig `mapstructure:"export"`
}

// ExportConfig selects where exported packages are written.
type ExportConfig struct {
	Sink                  string `mapstructure:"sink"`
	Bucket                string `mapstructure:"bucket"`
	Prefix                string `mapstructure:"prefix"`
	Region                string `mapstructure:"region"`
	S3AccessKeyID         string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey     string `mapstructure:"s3_secret_access_key"`
	AzureConnectionString string `mapstructure:"azure_connection_string"`
	GCSCredentialsFile    string `mapstructure:"gcs_credentials_file"`
	B2KeyID               string `mapstructure:"b2_key_id"`
	B2AppKey              string `mapstructure:"b2_app_key"`
	Workers               int    `mapstructure:"workers"`
}

func Default() *Config {
	return &Config{
		Backend:               "auto",
		WindowsDir:            defaultWindowsDir(),
		PnputilPath:           "pnputil.exe",
		PnputilTimeoutSeconds: 300,
		DeviceSource:          "setupapi",
		UseBackupPrivilege:    true,
		LogLevel:              "warn",
		LogFormat:             "text",
		LogMaxSizeMB:          10,
		LogMaxBackups:         3,
		AuditMaxSizeMB:        50,
		AuditMaxBackups:       3,
		Export: ExportConfig{
			Sink:    "local",
			Workers: 4,
		},
	}
}

// Load reads cfgFile (or drvstore.yaml from the usual directories) and
// DRVSTORE_* environment variables on top of Default. A missing config
// file is not an error.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("drvstore")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DRVSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("image_path", cfg.ImagePath)
	v.SetDefault("windows_dir", cfg.WindowsDir)
	v.SetDefault("pnputil_path", cfg.PnputilPath)
	v.SetDefault("pnputil_timeout_seconds", cfg.PnputilTimeoutSeconds)
	v.SetDefault("device_source", cfg.DeviceSource)
	v.SetDefault("use_backup_privilege", cfg.UseBackupPrivilege)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)
	v.SetDefault("log_max_backups", cfg.LogMaxBackups)
	v.SetDefault("audit_file", cfg.AuditFile)
	v.SetDefault("audit_max_size_mb", cfg.AuditMaxSizeMB)
	v.SetDefault("audit_max_backups", cfg.AuditMaxBackups)
	v.SetDefault("export.sink", cfg.Export.Sink)
	v.SetDefault("export.bucket", cfg.Export.Bucket)
	v.SetDefault("export.prefix", cfg.Export.Prefix)
	v.SetDefault("export.region", cfg.Export.Region)
	v.SetDefault("export.s3_access_key_id", cfg.Export.S3AccessKeyID)
	v.SetDefault("export.s3_secret_access_key", cfg.Export.S3SecretAccessKey)
	v.SetDefault("export.azure_connection_string", cfg.Export.AzureConnectionString)
	v.SetDefault("export.gcs_credentials_file", cfg.Export.GCSCredentialsFile)
	v.SetDefault("export.b2_key_id", cfg.Export.B2KeyID)
	v.SetDefault("export.b2_app_key", cfg.Export.B2AppKey)
	v.SetDefault("export.workers", cfg.Export.Workers)
}

// Online reports whether the running system is targeted rather than an
// offline image.
func (c *Config) Online() bool {
	return strings.TrimSpace(c.ImagePath) == ""
}

// TargetRoot is the Windows directory of the targeted system.
func (c *Config) TargetRoot() string {
	if c.Online() {
		return c.WindowsDir
	}
	return filepath.Join(c.ImagePath, "Windows")
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "drvstore")
	default:
		return "/etc/drvstore"
	}
}

func defaultWindowsDir() string {
	if dir := os.Getenv("SystemRoot"); dir != "" {
		return dir
	}
	return `C:\Windows`
}
