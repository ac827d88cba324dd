// Package settings stores small key/value configuration records in a fixed
// set of named storage instances. Values are plain strings; booleans are
// encoded as "true"/"false" by the UI layer.
package settings

import "time"

// Setting is one named configuration value within one instance.
// UpdatedAt is assigned by the store at write time and is never
// caller-supplied.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValue is one element of a bulk update.
type KeyValue struct {
	Instance Instance `json:"-"`
	Key      string   `json:"key"`
	Value    string   `json:"value"`
}

// InstanceStats summarizes one instance for the admin dashboard. A degraded
// instance reports its error inline instead of failing the whole call.
type InstanceStats struct {
	Instance    Instance   `json:"-"`
	Key         string     `json:"instance"`
	DisplayName string     `json:"display_name"`
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// SearchResult is one matching setting plus the instance it came from.
type SearchResult struct {
	Instance string  `json:"instance"`
	Setting  Setting `json:"setting"`
}

// BulkResult reports per-element outcomes of a bulk update. The operation is
// not atomic: earlier successes stand even when later elements fail.
type BulkResult struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
