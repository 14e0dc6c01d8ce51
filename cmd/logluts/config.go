package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/logluts/internal/backup"
	"github.com/tinytelemetry/logluts/internal/duckdb"
	"github.com/tinytelemetry/logluts/internal/httpserver"
	"github.com/tinytelemetry/logluts/internal/logparse"
	"github.com/tinytelemetry/logluts/internal/model"
	"github.com/tinytelemetry/logluts/internal/report"
)

const (
	defaultConfigFile     = ".logluts.yml"
	defaultBackupLocalDir = ".logluts/backups"
	defaultBackupKeepLast = 24
)

// appConfig is the runtime configuration of one invocation.
type appConfig struct {
	CSVFile    string `mapstructure:"csvfile"`
	YosysLog   string `mapstructure:"yosys-log"`
	NextpnrLog string `mapstructure:"nextpnr-log"`
	GitPath    string `mapstructure:"git"`
	Branch     string `mapstructure:"branch"`
	Target     string `mapstructure:"target"`

	AddCommit   bool   `mapstructure:"add-commit"`
	Plot        bool   `mapstructure:"plot"`
	HTMLPath    string `mapstructure:"html"`
	Summary     bool   `mapstructure:"summary"`
	Serve       bool   `mapstructure:"serve"`
	PlotCurrent bool   `mapstructure:"plot-current"`
	Format      string `mapstructure:"format"`

	DBPath       string        `mapstructure:"db-path"`
	APIAddr      string        `mapstructure:"api-addr"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`

	BackupEnabled     bool   `mapstructure:"backup-enabled"`
	BackupLocalDir    string `mapstructure:"backup-local-dir"`
	BackupKeepLast    int    `mapstructure:"backup-keep-last"`
	BackupBucketURL   string `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint  string `mapstructure:"backup-s3-endpoint"`
	BackupS3Region    string `mapstructure:"backup-s3-region"`
	BackupS3AccessKey string `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey string `mapstructure:"backup-s3-secret-key"`
	BackupS3UseSSL    bool   `mapstructure:"backup-s3-use-ssl"`

	ConfigPath string `mapstructure:"-"` // not from config file

	target logparse.Target
	format report.Format
}

// newFlagSet declares the command line. Every flag is bound into viper, so a
// flag given on the command line wins over env and config file.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("logluts", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.String("csvfile", model.DefaultCSVFile, "history CSV file")
	fs.String("yosys-log", model.DefaultYosysLog, "yosys synthesis log")
	fs.String("nextpnr-log", model.DefaultNextpnrLog, "nextpnr place-and-route log")
	fs.String("git", model.DefaultGitPath, "git repository (worktree or .git dir)")
	fs.String("branch", "", "resolve this branch instead of HEAD")
	fs.String("target", model.DefaultTarget, "device family: "+strings.Join(targetNames(), ", "))

	fs.Bool("add-commit", false, "scrape the logs and append a row for the current commit")
	fs.Bool("plot", false, "plot the history in the terminal")
	fs.String("html", "", "write the history chart as HTML to this path")
	fs.Bool("summary", false, "print a summary of the history")
	fs.Bool("serve", false, "serve the history over HTTP")
	fs.Bool("plot-current", false, "include the stats of the current logs as a trailing point")
	fs.String("format", string(report.FormatText), "summary format: text, yaml, json")

	fs.String("config", "", "config file (default is ./"+defaultConfigFile+" when present)")
	fs.Bool("version", false, "print version information")
	return fs
}

func targetNames() []string {
	names := make([]string, 0, len(logparse.Targets))
	for _, t := range logparse.Targets {
		names = append(names, t.String())
	}
	return names
}

func loadConfig(fs *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix("LOGLUTS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("csvfile", model.DefaultCSVFile)
	v.SetDefault("yosys-log", model.DefaultYosysLog)
	v.SetDefault("nextpnr-log", model.DefaultNextpnrLog)
	v.SetDefault("git", model.DefaultGitPath)
	v.SetDefault("branch", "")
	v.SetDefault("target", model.DefaultTarget)
	v.SetDefault("format", string(report.FormatText))
	v.SetDefault("db-path", "")
	v.SetDefault("api-addr", httpserver.DefaultAddr)
	v.SetDefault("query-timeout", duckdb.DefaultQueryTimeout)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-local-dir", defaultBackupLocalDir)
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("backup-bucket-url", "")
	v.SetDefault("backup-s3-endpoint", "")
	v.SetDefault("backup-s3-region", "")
	v.SetDefault("backup-s3-access-key", "")
	v.SetDefault("backup-s3-secret-key", "")
	v.SetDefault("backup-s3-use-ssl", true)

	if err := v.BindPFlags(fs); err != nil {
		return cfg, fmt.Errorf("bind flags: %w", err)
	}

	configPath, _ := fs.GetString("config")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(defaultConfigFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		// An explicit --config must exist.
		if configPath != "" || (!errors.As(err, &configFileNotFound) && !os.IsNotExist(err)) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	target, err := logparse.ParseTarget(cfg.Target)
	if err != nil {
		return cfg, err
	}
	cfg.target = target

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return cfg, err
	}
	cfg.format = format

	if cfg.BackupKeepLast < 0 {
		return cfg, fmt.Errorf("invalid backup-keep-last: %d", cfg.BackupKeepLast)
	}

	if home, err := os.UserHomeDir(); err == nil {
		cfg.DBPath = expandHome(home, cfg.DBPath)
		cfg.BackupLocalDir = expandHome(home, cfg.BackupLocalDir)
	}

	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func (c appConfig) backupConfig() backup.Config {
	return backup.Config{
		Enabled:     c.BackupEnabled,
		LocalDir:    c.BackupLocalDir,
		KeepLast:    c.BackupKeepLast,
		BucketURL:   c.BackupBucketURL,
		S3Endpoint:  c.BackupS3Endpoint,
		S3Region:    c.BackupS3Region,
		S3AccessKey: c.BackupS3AccessKey,
		S3SecretKey: c.BackupS3SecretKey,
		S3UseSSL:    c.BackupS3UseSSL,
	}
}
