// Package config defines the release pipeline settings and provides helpers
// to load, validate and save them in YAML format.
//
// Every path in Config is relative to Root unless absolute. Environment
// variables are folded in once by the CLI through ApplyEnv; pipeline stages
// only ever see the resulting value.
package config
