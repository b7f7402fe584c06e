// Package config handles loading and validating rssimon configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker credentials and tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.IngestAddress())
package config
