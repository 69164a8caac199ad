// Package source loads rule definitions from YAML files and watches them
// for changes.
//
// # Overview
//
// A FileSource reads one file or a directory tree of .yaml/.yml files and
// produces catalog rules with declarative condition predicates. A
// FileWatcher observes the same path with fsnotify and triggers a reload
// callback after a debounced quiet interval, so editors that write files
// in several steps cause a single reload.
//
// # Usage
//
//	src := source.NewFileSource("rules/", logger)
//	rules, err := src.LoadRules(ctx)
//
// A load is all-or-nothing: one malformed file rejects the entire batch,
// leaving the previously active rule set in place.
package source
