// Package config handles loading and validating the Solax bridge configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (SOLAXBRIDGE_*, plus the legacy
//     MQTT_HOST, MQTT_PORT, MQTT_TOPIC and MQTT_DISCOVERY_PREFIX names)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Upstream broker credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Topics.Sensor)
package config
