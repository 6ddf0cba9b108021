// Package config loads and validates the constrained device agent configuration.
//
// This package manages:
//   - Loading configuration from a YAML file
//   - Overriding with PIOT_CDA_* environment variables
//   - Replacing unusable values with safe defaults (recorded as warnings)
//   - Rejecting configurations that cannot run
//
// Configuration is loaded once at startup and passed by pointer to the
// components that need it. Nothing reads it through a global.
//
// Usage:
//
//	cfg, err := config.Load("configs/cda.yaml")
//	if err != nil {
//	    return err
//	}
//	for _, w := range cfg.Warnings {
//	    log.Warn("configuration corrected", "detail", w)
//	}
//
// Secrets (MQTT password, InfluxDB token) should come from the environment
// rather than the file.
package config
