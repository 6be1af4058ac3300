package constants

import "time"

const (
	DataKey        = "terraforming_mars_data"
	LastUpdatedKey = "terraforming_mars_last_updated"
	LocalCacheKey  = "terraformingMarsData"
)

const (
	DefaultPollInterval = 3 * time.Second
	ExternalAPITimeout  = 10 * time.Second
	DatabaseTimeout     = 5 * time.Second
	RequestTimeout      = 30 * time.Second
	ArchiveTimeout      = 20 * time.Second
)

const (
	DBMaxOpenConns = 1
	DBMaxIdleConns = 1
	MaxBackups     = 10
	MaxBodyBytes   = 10 << 20
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	ExportedBy     = "TFM Counter Web App"
	ExportFilename = "tfm_data_%s.json"
)
