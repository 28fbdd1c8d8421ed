// Package config persists user settings for recording, playback and the
// browser in ~/.formflow/config.json.
package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager with the recorder, player and browser
// sections registered and loaded from the file at configPath.
func NewDefaultManager(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	for _, s := range []Section{NewRecorderSection(), NewPlayerSection(), NewBrowserSection()} {
		if err := manager.RegisterSection(s); err != nil {
			return nil, err
		}
	}
	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	manager, err := NewDefaultManager(configPath)
	if err != nil {
		return err
	}
	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func section[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	s, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := s.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetRecorder returns the recorder section from global config, or nil
// when config is not initialized.
func GetRecorder() *RecorderSection { return section[*RecorderSection](SectionIDRecorder) }

// GetPlayer returns the player section from global config, or nil.
func GetPlayer() *PlayerSection { return section[*PlayerSection](SectionIDPlayer) }

// GetBrowser returns the browser section from global config, or nil.
func GetBrowser() *BrowserSection { return section[*BrowserSection](SectionIDBrowser) }
