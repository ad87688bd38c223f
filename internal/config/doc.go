// Package config provides configuration structures and utilities for linkaudit.
// It defines the main configuration options for auditing websites, probe
// settings, and report generation preferences.
package config
