package backup

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Frequency controls how often a target is actually backed up
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// BackupTarget is one directory to back up, optionally tied to a live
// game service reachable through a screen console session
type BackupTarget struct {
	SourcePath  string    `json:"source_path"`
	ServiceName string    `json:"service_name,omitempty"`
	Frequency   Frequency `json:"frequency"`
}

// Name returns the identifier used in archive and snapshot names:
// the service name when set, the source path's base name otherwise
func (t BackupTarget) Name() string {
	if t.ServiceName != "" {
		return t.ServiceName
	}
	base := strings.TrimRight(t.SourcePath, "/")
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return base
}

// ParseTargetSpec parses a "path:service:frequency" target entry.
// Service and frequency are optional; an empty service means the target
// has no live process to pause.
func ParseTargetSpec(spec string, defaultFrequency Frequency) (BackupTarget, error) {
	parts := strings.SplitN(spec, ":", 3)
	target := BackupTarget{
		SourcePath: strings.TrimSpace(parts[0]),
		Frequency:  defaultFrequency,
	}
	if len(parts) > 1 {
		target.ServiceName = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		target.Frequency = Frequency(strings.ToLower(strings.TrimSpace(parts[2])))
	}
	if target.SourcePath == "" {
		return BackupTarget{}, NewValidationError(fmt.Sprintf("target entry %q has no source path", spec), nil)
	}
	return target, nil
}

// StorageConfig defines storage provider configuration
type StorageConfig struct {
	Provider StorageProviderType `yaml:"provider" mapstructure:"provider"`
	Local    *LocalConfig        `yaml:"local,omitempty" mapstructure:"local"`
	S3       *S3Config           `yaml:"s3,omitempty" mapstructure:"s3"`
	Azure    *AzureConfig        `yaml:"azure,omitempty" mapstructure:"azure"`
	GCS      *GCSConfig          `yaml:"gcs,omitempty" mapstructure:"gcs"`
}

// LocalConfig for local file system storage
type LocalConfig struct {
	BasePath    string      `yaml:"base_path" mapstructure:"base_path"`
	Permissions os.FileMode `yaml:"permissions" mapstructure:"permissions"`
}

// S3Config for Amazon S3 storage
type S3Config struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `yaml:"account_name" mapstructure:"account_name"`
	AccountKey    string `yaml:"account_key" mapstructure:"account_key"`
	ContainerName string `yaml:"container_name" mapstructure:"container_name"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	CredentialsPath string `yaml:"credentials_path" mapstructure:"credentials_path"`
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`
}

// DirectiveConfig holds the console directive vocabulary understood by
// the game servers. Defaults cover Minecraft-style servers.
type DirectiveConfig struct {
	PauseSaves   string `yaml:"pause_saves" mapstructure:"pause_saves"`
	FlushSaves   string `yaml:"flush_saves" mapstructure:"flush_saves"`
	ResumeSaves  string `yaml:"resume_saves" mapstructure:"resume_saves"`
	NotifyFormat string `yaml:"notify_format" mapstructure:"notify_format"`
}

// SystemConfig is the top-level tool configuration
type SystemConfig struct {
	Targets          []string        `yaml:"targets" mapstructure:"targets"`
	Storage          StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Prefix           string          `yaml:"prefix" mapstructure:"prefix"`
	WorkDir          string          `yaml:"work_dir" mapstructure:"work_dir"`
	MaxBackups       int             `yaml:"max_backups" mapstructure:"max_backups"`
	Compression      CompressionType `yaml:"compression" mapstructure:"compression"`
	DefaultFrequency Frequency       `yaml:"default_frequency" mapstructure:"default_frequency"`
	WeeklyDay        string          `yaml:"weekly_day" mapstructure:"weekly_day"`
	GracePeriod      time.Duration   `yaml:"grace_period" mapstructure:"grace_period"`
	SettleDelay      time.Duration   `yaml:"settle_delay" mapstructure:"settle_delay"`
	Directives       DirectiveConfig `yaml:"directives" mapstructure:"directives"`
	NotifyMessage    string          `yaml:"notify_message" mapstructure:"notify_message"`
	WebhookURL       string          `yaml:"webhook_url" mapstructure:"webhook_url"`
	LogFile          string          `yaml:"log_file" mapstructure:"log_file"`
	DryRun           bool            `yaml:"dry_run" mapstructure:"dry_run"`
}

// SetDefaults fills unset fields with working defaults
func (c *SystemConfig) SetDefaults() {
	if c.Storage.Provider == "" {
		c.Storage.Provider = StorageProviderLocal
	}
	c.Storage.Provider = StorageProviderType(strings.ToUpper(string(c.Storage.Provider)))
	if c.Prefix == "" {
		c.Prefix = "backups"
	}
	if c.WorkDir == "" {
		c.WorkDir = os.TempDir()
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 7
	}
	if c.Compression == "" {
		c.Compression = CompressionTypeGzip
	}
	if c.DefaultFrequency == "" {
		c.DefaultFrequency = FrequencyDaily
	}
	if c.WeeklyDay == "" {
		c.WeeklyDay = "sunday"
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 30 * time.Second
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 5 * time.Second
	}
	if c.Directives.PauseSaves == "" {
		c.Directives.PauseSaves = "save-off"
	}
	if c.Directives.FlushSaves == "" {
		c.Directives.FlushSaves = "save-all"
	}
	if c.Directives.ResumeSaves == "" {
		c.Directives.ResumeSaves = "save-on"
	}
	if c.Directives.NotifyFormat == "" {
		c.Directives.NotifyFormat = "say %s"
	}
	if c.NotifyMessage == "" {
		c.NotifyMessage = "Server backup starting soon. Brief lag possible."
	}
}

// ParseTargets parses every configured target entry
func (c *SystemConfig) ParseTargets() ([]BackupTarget, error) {
	targets := make([]BackupTarget, 0, len(c.Targets))
	for _, spec := range c.Targets {
		target, err := ParseTargetSpec(spec, c.DefaultFrequency)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// WeeklyWeekday resolves the configured end-of-week day name
func (c *SystemConfig) WeeklyWeekday() (time.Weekday, error) {
	return parseWeekday(c.WeeklyDay)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	if day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return day, nil
	}
	return time.Sunday, NewConfigurationError(fmt.Sprintf("unknown weekday %q", name), nil)
}

// Enums and constants

type CompressionType string

const (
	CompressionTypeNone CompressionType = "NONE"
	CompressionTypeGzip CompressionType = "GZIP"
	CompressionTypeLZ4  CompressionType = "LZ4"
	CompressionTypeZstd CompressionType = "ZSTD"
)

// ParseCompressionType normalizes a user-supplied algorithm name
func ParseCompressionType(name string) (CompressionType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "GZIP", "GZ":
		return CompressionTypeGzip, nil
	case "ZSTD", "ZST":
		return CompressionTypeZstd, nil
	case "LZ4":
		return CompressionTypeLZ4, nil
	case "NONE":
		return CompressionTypeNone, nil
	default:
		return "", NewConfigurationError(fmt.Sprintf("unknown compression type %q", name), nil)
	}
}

type StorageProviderType string

const (
	StorageProviderLocal StorageProviderType = "LOCAL"
	StorageProviderS3    StorageProviderType = "S3"
	StorageProviderAzure StorageProviderType = "AZURE"
	StorageProviderGCS   StorageProviderType = "GCS"
)
