// Package config loads clientengine settings from a YAML file, a .env file
// and CLIENTENGINE_* environment variables, and converts them into an
// engine.ClientConfiguration.
//
//	settings := config.DefaultSettings()
//	if err := config.Load(&settings, config.WithConfigFile("clientengine.yml")); err != nil {
//		return err
//	}
//	if err := settings.Validate(); err != nil {
//		return err
//	}
//	cfg, err := settings.ToClientConfiguration()
//
// Environment variables override file values: CLIENTENGINE_CLIENT_READ_TIMEOUT=5s
// sets client.read_timeout.
package config
