package settings

import (
	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
)

// Instance identifies one of the statically declared settings stores. Each
// value carries its storage instance name, API key and display name as data,
// so there is no stringly-typed lookup anywhere else.
type Instance int

const (
	// General holds app-wide configuration toggles.
	General Instance = iota
	// Features holds feature-flag style switches.
	Features
	// Notifications holds notification and email preferences.
	Notifications
)

type instanceInfo struct {
	key         string // API path segment and logical key
	storageName string // storage instance name
	displayName string // shown in the admin UI
}

var instanceTable = map[Instance]instanceInfo{
	General:       {key: "general", storageName: "app-settings", displayName: "General"},
	Features:      {key: "features", storageName: "feature-flags", displayName: "Features"},
	Notifications: {key: "notifications", storageName: "notification-settings", displayName: "Notifications"},
}

// Instances enumerates every declared settings instance in display order.
func Instances() []Instance {
	return []Instance{General, Features, Notifications}
}

// InstanceFromKey maps an API path segment back to an instance. An unknown
// key is a parse failure (ErrUnknownInstance), not a storage fault.
func InstanceFromKey(key string) (Instance, error) {
	for _, inst := range Instances() {
		if inst.Key() == key {
			return inst, nil
		}
	}
	return 0, apperrors.ErrUnknownInstance
}

func (i Instance) Key() string {
	return instanceTable[i].key
}

func (i Instance) StorageName() string {
	return instanceTable[i].storageName
}

func (i Instance) DisplayName() string {
	return instanceTable[i].displayName
}

func (i Instance) String() string {
	return i.Key()
}
