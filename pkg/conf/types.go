package conf

// System holds transport-level settings.
type System struct {
	Listen      string `validate:"required"`
	Debug       bool
	LogLevel    string `validate:"oneof=debug info warning error"`
	ProxyHeader string
	GracePeriod int `validate:"gte=0"`
}

// WebDAV holds the engine mount settings.
type WebDAV struct {
	Root           string `validate:"required"`
	Prefix         string `validate:"required,startswith=/"`
	ReadOnly       bool
	EnableLocking  bool
	AllowAnonymous bool
	// MaxUploadSize caps a single PUT body in bytes. Zero means unlimited.
	MaxUploadSize int64 `validate:"gte=0"`
	// SpeedLimit caps GET streaming in bytes per second. Zero means unlimited.
	SpeedLimit int64 `validate:"gte=0"`
}

// Throttle holds concurrency and rate limiting settings.
type Throttle struct {
	MaxConcurrent int `validate:"gte=0"`
	MaxRPS        int `validate:"gte=0"`
	WindowSeconds int `validate:"gte=1"`
}

// StoreBackend selects the persistence backend of a store.
type StoreBackend string

var (
	MemoryBackend StoreBackend = "memory"
	FileBackend   StoreBackend = "file"
	RedisBackend  StoreBackend = "redis"
)

// Store selects the property and lock store backends.
type Store struct {
	PropertyBackend StoreBackend `validate:"eq=memory|eq=file|eq=redis"`
	LockBackend     StoreBackend `validate:"eq=memory|eq=redis"`
}

// Auth holds the Basic authentication settings. Users maps user names to
// SHA-256 hex digests of their passwords.
type Auth struct {
	Realm string
	Users map[string]string `ini:"-"`
}

// Redis connection settings, used when a store backend is "redis".
type Redis struct {
	Network       string
	Server        string
	User          string
	Password      string
	DB            string
	UseSSL        bool
	TLSSkipVerify bool
}

// Cors settings for the mount.
type Cors struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	ExposeHeaders    []string
}
