// Package config loads runtime configuration for the sync daemon.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   DSN of the local embedded database
//	-p string   platform tag (ios, macos, watchos, tvos, visionos)
//	-i int      periodic reconciliation interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "5m" or integer nanoseconds:
//
//	{
//	  "local_dsn": "infinitum.db",
//	  "platform": "ios",
//	  "device_id": "A1B2-C3D4",
//	  "sync_interval": "5m",
//	  "remote_project_id": "infinitum-prod",
//	  "remote_credentials_file": "/etc/infinitum/firebase.json",
//	  "record_bucket": "infinitum-records",
//	  "record_region": "us-east-1"
//	}
//
// Credentials for the record store come from the JSON file only; they have no
// flag equivalents on purpose.
package config
