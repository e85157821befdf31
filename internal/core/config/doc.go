// Package config loads the process configuration once at startup.
//
// A settings file (YAML by default, or any format viper recognises by
// extension) is read first; environment variables named
// PREFIX__GROUP__FIELD then override the matching group.field value; the
// merged tree is decoded into a Configuration and validated. Durations are
// written in human-readable form such as "5s" or "2m30s".
//
// Missing optional groups decode to zero values. Empty secrets and service
// addresses are not errors here; the component that needs them reports it.
package config
