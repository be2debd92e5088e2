// Package configs provides the embedded configuration template for doctext.
//
// The template is embedded at build time so `doctext init` works the same
// from source builds and binary releases. To change it, edit the .yaml
// file in this directory and rebuild.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/doctext/config.yaml)
//  3. Project config (.doctext.yaml)
//  4. Environment variables (DOCTEXT_*)
package configs

import _ "embed"

// ProjectConfigTemplate is written by `doctext init` as .doctext.yaml in
// the collection root. Every setting is present with its default value.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
