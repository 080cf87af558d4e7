package conf

// SystemConfig 系统公用配置
var SystemConfig = &System{
	Debug:       false,
	Listen:      ":5212",
	LogLevel:    "info",
	ProxyHeader: "X-Forwarded-For",
	GracePeriod: 10,
}

// WebDAVConfig 挂载点默认配置
var WebDAVConfig = &WebDAV{
	Root:          "data/dav",
	Prefix:        "/dav",
	EnableLocking: true,
}

// ThrottleConfig 限流默认配置
var ThrottleConfig = &Throttle{
	MaxConcurrent: 64,
	MaxRPS:        0,
	WindowSeconds: 60,
}

// StoreConfig 存储后端默认配置
var StoreConfig = &Store{
	PropertyBackend: MemoryBackend,
	LockBackend:     MemoryBackend,
}

// AuthConfig 认证默认配置
var AuthConfig = &Auth{
	Realm: "davserver",
}

// RedisConfig Redis服务器配置
var RedisConfig = &Redis{
	Network:       "tcp",
	Server:        "",
	Password:      "",
	DB:            "0",
	UseSSL:        false,
	TLSSkipVerify: true,
}

// CORSConfig 跨域配置
var CORSConfig = &Cors{
	AllowOrigins:     []string{"UNSET"},
	AllowMethods:     []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS", "PROPFIND", "PROPPATCH", "MKCOL", "COPY", "MOVE", "LOCK", "UNLOCK"},
	AllowHeaders:     []string{"Authorization", "Content-Length", "Content-Type", "Depth", "Destination", "Overwrite", "If", "Lock-Token", "Timeout"},
	AllowCredentials: false,
	ExposeHeaders:    nil,
}
