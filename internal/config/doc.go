// Package config defines the installer settings and provides helpers to
// load, validate, override and save them in YAML format.
//
// A Config is built once per run and handed to every pipeline stage by
// value, so no stage can change what another stage sees.
package config
