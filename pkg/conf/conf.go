package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ini/ini"
	"github.com/go-playground/validator/v10"
	"github.com/mirrorbay/davserver/pkg/logging"
	"github.com/mirrorbay/davserver/pkg/util"
)

const (
	envConfOverrideKey = "DS_CONF_"
	userSection        = "Users"
)

// ConfigProvider exposes all parsed configuration sections.
type ConfigProvider interface {
	System() *System
	WebDAV() *WebDAV
	Throttle() *Throttle
	Store() *Store
	Auth() *Auth
	Redis() *Redis
	Cors() *Cors
}

// NewIniConfigProvider initializes a new Ini config file provider. A default
// config file will be created if the given path does not exist.
func NewIniConfigProvider(configPath string, l logging.Logger) (ConfigProvider, error) {
	if configPath == "" || !util.Exists(configPath) {
		l.Info("Config file %q not found, creating a new one.", configPath)
		f, err := util.CreatNestedFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create config file: %w", err)
		}

		_, err = f.WriteString(defaultConf)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write config file: %w", err)
		}

		f.Close()
	}

	cfg, err := ini.Load(configPath, []byte(getOverrideConfFromEnv(l)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", configPath, err)
	}

	provider := &iniConfigProvider{
		system:   *SystemConfig,
		webdav:   *WebDAVConfig,
		throttle: *ThrottleConfig,
		store:    *StoreConfig,
		auth:     *AuthConfig,
		redis:    *RedisConfig,
		cors:     *CORSConfig,
	}

	sections := map[string]interface{}{
		"System":   &provider.system,
		"WebDAV":   &provider.webdav,
		"Throttle": &provider.throttle,
		"Store":    &provider.store,
		"Auth":     &provider.auth,
		"Redis":    &provider.redis,
		"CORS":     &provider.cors,
	}
	for sectionName, sectionStruct := range sections {
		err = mapSection(cfg, sectionName, sectionStruct)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config section %q: %w", sectionName, err)
		}
	}

	// Basic credentials live in their own section as `name = sha256hex`.
	provider.auth.Users = make(map[string]string)
	for _, key := range cfg.Section(userSection).Keys() {
		provider.auth.Users[key.Name()] = key.Value()
	}

	return provider, nil
}

type iniConfigProvider struct {
	system   System
	webdav   WebDAV
	throttle Throttle
	store    Store
	auth     Auth
	redis    Redis
	cors     Cors
}

func (i *iniConfigProvider) System() *System {
	return &i.system
}

func (i *iniConfigProvider) WebDAV() *WebDAV {
	return &i.webdav
}

func (i *iniConfigProvider) Throttle() *Throttle {
	return &i.throttle
}

func (i *iniConfigProvider) Store() *Store {
	return &i.store
}

func (i *iniConfigProvider) Auth() *Auth {
	return &i.auth
}

func (i *iniConfigProvider) Redis() *Redis {
	return &i.redis
}

func (i *iniConfigProvider) Cors() *Cors {
	return &i.cors
}

const defaultConf = `[System]
Debug = false
Listen = :5212
LogLevel = info

[WebDAV]
Root = data/dav
Prefix = /dav
ReadOnly = false
EnableLocking = true
AllowAnonymous = true
`

// mapSection 将配置文件的 Section 映射到结构体上
func mapSection(cfg *ini.File, section string, confStruct interface{}) error {
	err := cfg.Section(section).MapTo(confStruct)
	if err != nil {
		return err
	}

	// 验证合法性
	validate := validator.New()
	err = validate.Struct(confStruct)
	if err != nil {
		return err
	}

	return nil
}

func getOverrideConfFromEnv(l logging.Logger) string {
	confMaps := make(map[string]map[string]string)
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envConfOverrideKey) {
			continue
		}

		kv := strings.SplitN(env, "=", 2)
		configKey := strings.TrimPrefix(kv[0], envConfOverrideKey)
		configValue := kv[1]
		sectionKey := strings.SplitN(configKey, ".", 2)
		if len(sectionKey) != 2 {
			continue
		}
		if confMaps[sectionKey[0]] == nil {
			confMaps[sectionKey[0]] = make(map[string]string)
		}

		confMaps[sectionKey[0]][sectionKey[1]] = configValue
		l.Info("Override config %q = %q", configKey, configValue)
	}

	var sb strings.Builder
	for section, kvs := range confMaps {
		sb.WriteString(fmt.Sprintf("[%s]\n", section))
		for k, v := range kvs {
			sb.WriteString(fmt.Sprintf("%s = %s\n", k, v))
		}
	}

	return sb.String()
}
