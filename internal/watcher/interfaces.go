// Package watcher reports debounced changes to the source files of a design folder.
package watcher

import "context"

// FileWatcher monitors source files for changes with debouncing.
type FileWatcher interface {
	// Start begins watching, calling callback with each debounced batch of changed files.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and waits for the event loop to exit.
	Stop() error
}

// Matcher reports whether a path relative to the watched root is a source file.
type Matcher func(relPath string) bool
