// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"path/filepath"
	"strings"
)

// Normalize fills derived values. It runs before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMemory
	}

	// The cursor journal lives next to the image unless placed explicitly.
	// The other backends lose their slots on exit, so a journal would only
	// point past an empty log.
	switch cfg.Store.Backend {
	case BackendFile:
		if cfg.Store.Journal == "" && cfg.Store.Path != "" {
			cfg.Store.Journal = cfg.Store.Path + ".cursor"
		}
	default:
		cfg.Store.Journal = ""
	}
	if cfg.Store.Path != "" {
		cfg.Store.Path = filepath.Clean(cfg.Store.Path)
	}

	cfg.MQTT.TopicPrefix = strings.Trim(cfg.MQTT.TopicPrefix, "/")

	for i := range cfg.Windows {
		if cfg.Windows[i].Name == "" {
			cfg.Windows[i].Name = string(rune('1' + i))
		}
	}
}
