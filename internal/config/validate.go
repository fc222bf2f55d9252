package config

import (
	"fmt"
	"strings"
)

var validBackends = map[string]bool{
	"auto":    true,
	"native":  true,
	"dism":    true,
	"pnputil": true,
}

var validDeviceSources = map[string]bool{
	"setupapi": true,
	"wmi":      true,
}

var validSinks = map[string]bool{
	"local": true,
	"s3":    true,
	"gcs":   true,
	"azure": true,
	"b2":    true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult separates problems that stop the tool from ones that
// were corrected or can be ignored.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal problem was found.
func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// AllErrors returns fatals followed by warnings.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	return append(all, r.Warnings...)
}

// ValidateTiered checks the config. Unknown enum values are fatal. Numeric
// values outside their safe range are clamped in place and reported as
// warnings.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if !validBackends[c.Backend] {
		r.Fatals = append(r.Fatals, fmt.Errorf("backend %q is not valid (use auto, native, dism or pnputil)", c.Backend))
	}

	c.DeviceSource = strings.ToLower(strings.TrimSpace(c.DeviceSource))
	if !validDeviceSources[c.DeviceSource] {
		r.Fatals = append(r.Fatals, fmt.Errorf("device_source %q is not valid (use setupapi or wmi)", c.DeviceSource))
	}

	c.Export.Sink = strings.ToLower(strings.TrimSpace(c.Export.Sink))
	if !validSinks[c.Export.Sink] {
		r.Fatals = append(r.Fatals, fmt.Errorf("export.sink %q is not valid (use local, s3, gcs, azure or b2)", c.Export.Sink))
	}
	if c.Export.Sink == "b2" && (c.Export.B2KeyID == "") != (c.Export.B2AppKey == "") {
		r.Fatals = append(r.Fatals, fmt.Errorf("export.b2_key_id and export.b2_app_key must be set together"))
	}
	if c.Export.Sink == "s3" && (c.Export.S3AccessKeyID == "") != (c.Export.S3SecretAccessKey == "") {
		r.Fatals = append(r.Fatals, fmt.Errorf("export.s3_access_key_id and export.s3_secret_access_key must be set together"))
	}

	if c.Backend == "pnputil" && !c.Online() {
		r.Fatals = append(r.Fatals, fmt.Errorf("backend pnputil cannot service an offline image (image_path %q)", c.ImagePath))
	}

	if strings.TrimSpace(c.PnputilPath) == "" {
		r.Warnings = append(r.Warnings, fmt.Errorf("pnputil_path is empty, using pnputil.exe"))
		c.PnputilPath = "pnputil.exe"
	}

	if c.PnputilTimeoutSeconds < 10 {
		r.Warnings = append(r.Warnings, fmt.Errorf("pnputil_timeout_seconds %d is below minimum 10, clamping", c.PnputilTimeoutSeconds))
		c.PnputilTimeoutSeconds = 10
	} else if c.PnputilTimeoutSeconds > 3600 {
		r.Warnings = append(r.Warnings, fmt.Errorf("pnputil_timeout_seconds %d exceeds maximum 3600, clamping", c.PnputilTimeoutSeconds))
		c.PnputilTimeoutSeconds = 3600
	}

	if c.Export.Workers < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("export.workers %d is below minimum 1, clamping", c.Export.Workers))
		c.Export.Workers = 1
	} else if c.Export.Workers > 32 {
		r.Warnings = append(r.Warnings, fmt.Errorf("export.workers %d exceeds maximum 32, clamping", c.Export.Workers))
		c.Export.Workers = 32
	}

	if c.LogMaxSizeMB < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_max_size_mb %d is below minimum 1, clamping", c.LogMaxSizeMB))
		c.LogMaxSizeMB = 1
	}
	if c.LogMaxBackups < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_max_backups %d is below minimum 1, clamping", c.LogMaxBackups))
		c.LogMaxBackups = 1
	}
	if c.AuditMaxSizeMB < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("audit_max_size_mb %d is below minimum 1, clamping", c.AuditMaxSizeMB))
		c.AuditMaxSizeMB = 1
	}
	if c.AuditMaxBackups < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("audit_max_backups %d is below minimum 1, clamping", c.AuditMaxBackups))
		c.AuditMaxBackups = 1
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}
