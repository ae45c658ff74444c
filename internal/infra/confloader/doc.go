// Package confloader loads configuration with koanf.
//
// Sources are applied in order, later ones overriding earlier ones:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML configuration file
//  3. Environment variables (STREAMGATE_ prefix)
//  4. Maps supplied by the caller, typically command-line flags
//
// Watcher reports changes to a configuration file so selected settings
// can be reapplied without a restart.
package confloader
