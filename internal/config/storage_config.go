package config

// StorageConfig locates the storage namespace on disk. An empty folder means
// no namespace is bound and every adapter call degrades to its unavailable
// shape instead of failing the request.
type StorageConfig interface {
	GetDataFolder() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetDataFolder() string {
	return GetEnv("FOLDER", "./data")
}
