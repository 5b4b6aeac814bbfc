// Package types defines the todo and tracker data model, the Mapping that
// correlates them, the Tracker and MappingStore interfaces, configuration,
// and the standard errors shared by every todosync package.
package types
