package settings

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/storage"
)

const createSettingsTable = `CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at INTEGER
)`

// InstanceResolver yields storage instances by name. *storage.Namespace
// satisfies it.
type InstanceResolver interface {
	Resolve(name string) (*storage.Instance, error)
}

// Store reads and writes settings rows in each instance's settings table.
// The table is created lazily: the load path recovers from a missing table
// exactly once, by creating it and retrying the read.
type Store struct {
	ns  InstanceResolver
	now func() time.Time
}

func NewStore(ns InstanceResolver) *Store {
	return &Store{ns: ns, now: time.Now}
}

// EnsureTable bootstraps an instance's settings table. Idempotent.
func (st *Store) EnsureTable(ctx context.Context, inst Instance) error {
	handle, err := st.ns.Resolve(inst.StorageName())
	if err != nil {
		return err
	}
	if _, err := handle.Run(ctx, createSettingsTable); err != nil {
		return apperrors.Wrapf(err, "settings.EnsureTable %s", inst)
	}
	return nil
}

// Load returns every setting in an instance. If the read fails because the
// table does not exist yet, the table is created and the read retried once;
// a second consecutive fault propagates. This is the only retry in the
// system.
func (st *Store) Load(ctx context.Context, inst Instance) ([]Setting, error) {
	handle, err := st.ns.Resolve(inst.StorageName())
	if err != nil {
		return nil, err
	}

	rows, _, err := handle.All(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil && apperrors.Is(err, apperrors.ErrNoSuchTable) {
		if _, err := handle.Run(ctx, createSettingsTable); err != nil {
			return nil, apperrors.Wrapf(err, "settings.Load create table %s", inst)
		}
		rows, _, err = handle.All(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "settings.Load %s", inst)
	}
	return decodeSettings(rows), nil
}

// Get returns a single setting, or ErrSettingNotFound.
func (st *Store) Get(ctx context.Context, inst Instance, key string) (*Setting, error) {
	handle, err := st.ns.Resolve(inst.StorageName())
	if err != nil {
		return nil, err
	}
	row, err := handle.First(ctx, `SELECT key, value, updated_at FROM settings WHERE key = ?`, key)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNoSuchTable) {
			return nil, apperrors.ErrSettingNotFound
		}
		return nil, apperrors.Wrapf(err, "settings.Get %s/%s", inst, key)
	}
	if row == nil {
		return nil, apperrors.ErrSettingNotFound
	}
	s := decodeSetting(row)
	return &s, nil
}

// Update upserts one setting with a write-time updated_at, then re-reads the
// instance and returns the fresh snapshot for display. There is no
// table-missing retry here: an update is expected to follow a load that
// already ensured the table exists.
func (st *Store) Update(ctx context.Context, inst Instance, key, value string) ([]Setting, error) {
	handle, err := st.ns.Resolve(inst.StorageName())
	if err != nil {
		return nil, err
	}

	_, err = handle.Run(ctx,
		`INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, st.now().UnixMilli(),
	)
	if err != nil {
		return nil, apperrors.Wrapf(err, "settings.Update %s/%s", inst, key)
	}

	rows, _, err := handle.All(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, apperrors.Wrapf(err, "settings.Update reload %s", inst)
	}
	return decodeSettings(rows), nil
}

// Clear deletes every row in the instance's settings table. The table itself
// stays present.
func (st *Store) Clear(ctx context.Context, inst Instance) error {
	handle, err := st.ns.Resolve(inst.StorageName())
	if err != nil {
		return err
	}
	if _, err := handle.Run(ctx, `DELETE FROM settings`); err != nil {
		if apperrors.Is(err, apperrors.ErrNoSuchTable) {
			return nil
		}
		return apperrors.Wrapf(err, "settings.Clear %s", inst)
	}
	return nil
}

// Stats fans the row count and latest update time out across every declared
// instance. An unavailable instance is reported inline and skipped, never
// failing the whole call.
func (st *Store) Stats(ctx context.Context) []InstanceStats {
	out := make([]InstanceStats, 0, len(Instances()))
	for _, inst := range Instances() {
		stats := InstanceStats{
			Instance:    inst,
			Key:         inst.Key(),
			DisplayName: inst.DisplayName(),
		}
		all, err := st.Load(ctx, inst)
		if err != nil {
			stats.Error = err.Error()
			out = append(out, stats)
			continue
		}
		stats.Count = len(all)
		for i := range all {
			if stats.LastUpdated == nil || all[i].UpdatedAt.After(*stats.LastUpdated) {
				t := all[i].UpdatedAt
				stats.LastUpdated = &t
			}
		}
		out = append(out, stats)
	}
	return out
}

// Search matches q case-insensitively against keys and values across every
// instance. Unavailable instances are skipped.
func (st *Store) Search(ctx context.Context, q string) []SearchResult {
	needle := strings.ToLower(q)
	out := make([]SearchResult, 0)
	for _, inst := range Instances() {
		all, err := st.Load(ctx, inst)
		if err != nil {
			continue
		}
		for _, s := range all {
			if strings.Contains(strings.ToLower(s.Key), needle) ||
				strings.Contains(strings.ToLower(s.Value), needle) {
				out = append(out, SearchResult{Instance: inst.Key(), Setting: s})
			}
		}
	}
	return out
}

// BulkUpdate applies each element independently. A failure partway through
// does not undo prior successful elements.
func (st *Store) BulkUpdate(ctx context.Context, updates []KeyValue) *BulkResult {
	result := &BulkResult{}
	for _, kv := range updates {
		if _, err := st.Update(ctx, kv.Instance, kv.Key, kv.Value); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, kv.Instance.Key()+"/"+kv.Key+": "+err.Error())
			continue
		}
		result.Updated++
	}
	return result
}

func decodeSettings(rows []storage.Row) []Setting {
	out := make([]Setting, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeSetting(row))
	}
	return out
}

func decodeSetting(row storage.Row) Setting {
	s := Setting{}
	if k, ok := row["key"].(string); ok {
		s.Key = k
	}
	if v, ok := row["value"].(string); ok {
		s.Value = v
	}
	if ms, ok := row["updated_at"].(int64); ok {
		s.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return s
}
