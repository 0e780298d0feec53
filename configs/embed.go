// Package configs provides embedded configuration templates for classcache.
//
// Templates are embedded at build time so every distribution carries them.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/classcache/config.yaml)
//  3. Project config (.classcache.yaml)
//  4. Environment variables (CLASSCACHE_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `classcache config init`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written by `classcache config init --project`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
