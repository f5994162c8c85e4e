package backup

import (
	"regexp"
	"strings"
)

// Validator provides validation utilities for backup system components
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// serviceNameRegex matches names screen accepts as session identifiers
var serviceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateSystemConfig validates the full tool configuration
func (v *Validator) ValidateSystemConfig(config *SystemConfig) error {
	var errors ValidationErrors

	if len(config.Targets) == 0 {
		errors.Add("targets", "at least one backup target is required", nil)
	}
	for _, spec := range config.Targets {
		target, err := ParseTargetSpec(spec, config.DefaultFrequency)
		if err != nil {
			errors.Add("targets", "invalid target entry", spec)
			continue
		}
		if err := v.ValidateTarget(target); err != nil {
			errors.Add("targets", err.Error(), spec)
		}
	}

	if err := v.ValidateStorageConfig(config.Storage); err != nil {
		errors.Add("storage", "invalid storage configuration", err.Error())
	}

	if config.MaxBackups < 1 {
		errors.Add("max_backups", "retention cap must be at least 1", config.MaxBackups)
	}

	if !v.IsValidCompressionType(config.Compression) {
		errors.Add("compression", "invalid compression type", config.Compression)
	}

	if !v.IsValidFrequency(config.DefaultFrequency) {
		errors.Add("default_frequency", "invalid default frequency", config.DefaultFrequency)
	}

	if _, err := config.WeeklyWeekday(); err != nil {
		errors.Add("weekly_day", "invalid weekday name", config.WeeklyDay)
	}

	if config.GracePeriod < 0 {
		errors.Add("grace_period", "grace period cannot be negative", config.GracePeriod)
	}
	if config.SettleDelay < 0 {
		errors.Add("settle_delay", "settle delay cannot be negative", config.SettleDelay)
	}

	if config.WebhookURL != "" && !strings.HasPrefix(config.WebhookURL, "http://") &&
		!strings.HasPrefix(config.WebhookURL, "https://") {
		errors.Add("webhook_url", "webhook URL must be http or https", config.WebhookURL)
	}

	if errors.HasErrors() {
		return &errors
	}
	return nil
}

// ValidateTarget validates a single parsed backup target
func (v *Validator) ValidateTarget(target BackupTarget) error {
	var errors ValidationErrors

	if target.SourcePath == "" {
		errors.Add("source_path", "source path is required", target.SourcePath)
	}
	if target.ServiceName != "" && !serviceNameRegex.MatchString(target.ServiceName) {
		errors.Add("service_name", "invalid service name (screen session identifier)", target.ServiceName)
	}
	// Unrecognized frequencies are allowed here; the orchestrator skips
	// them at run time with a warning.

	if errors.HasErrors() {
		return &errors
	}
	return nil
}

// ValidateStorageConfig validates storage configuration
func (v *Validator) ValidateStorageConfig(config StorageConfig) error {
	var errors ValidationErrors

	switch config.Provider {
	case StorageProviderLocal:
		if config.Local == nil {
			errors.Add("local", "local storage configuration is required", nil)
		} else if config.Local.BasePath == "" {
			errors.Add("local.base_path", "base path is required for local storage", config.Local.BasePath)
		}
	case StorageProviderS3:
		if config.S3 == nil {
			errors.Add("s3", "S3 storage configuration is required", nil)
		} else {
			if config.S3.Bucket == "" {
				errors.Add("s3.bucket", "S3 bucket name is required", config.S3.Bucket)
			}
			if config.S3.Region == "" {
				errors.Add("s3.region", "S3 region is required", config.S3.Region)
			}
		}
	case StorageProviderAzure:
		if config.Azure == nil {
			errors.Add("azure", "Azure storage configuration is required", nil)
		} else {
			if config.Azure.AccountName == "" {
				errors.Add("azure.account_name", "Azure account name is required", config.Azure.AccountName)
			}
			if config.Azure.ContainerName == "" {
				errors.Add("azure.container_name", "Azure container name is required", config.Azure.ContainerName)
			}
		}
	case StorageProviderGCS:
		if config.GCS == nil {
			errors.Add("gcs", "GCS storage configuration is required", nil)
		} else {
			if config.GCS.Bucket == "" {
				errors.Add("gcs.bucket", "GCS bucket name is required", config.GCS.Bucket)
			}
			if config.GCS.ProjectID == "" {
				errors.Add("gcs.project_id", "GCS project ID is required", config.GCS.ProjectID)
			}
		}
	default:
		errors.Add("provider", "invalid storage provider", config.Provider)
	}

	if errors.HasErrors() {
		return &errors
	}
	return nil
}

// IsValidCompressionType checks if compression type is valid
func (v *Validator) IsValidCompressionType(compressionType CompressionType) bool {
	switch compressionType {
	case CompressionTypeNone, CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd:
		return true
	default:
		return false
	}
}

// IsValidFrequency checks if a frequency is one the gate recognizes
func (v *Validator) IsValidFrequency(frequency Frequency) bool {
	switch frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// IsValidStorageProvider checks if storage provider is valid
func (v *Validator) IsValidStorageProvider(provider StorageProviderType) bool {
	switch provider {
	case StorageProviderLocal, StorageProviderS3, StorageProviderAzure, StorageProviderGCS:
		return true
	default:
		return false
	}
}
