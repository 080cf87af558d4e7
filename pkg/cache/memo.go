package cache

import (
	"bytes"
	"encoding/gob"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mirrorbay/davserver/pkg/util"
)

// MemoStore 内存存储驱动
type MemoStore struct {
	Store *sync.Map
}

// itemWithTTL 带有过期时间的缓存条目
type itemWithTTL struct {
	Expires int64
	Value   any
}

const DefaultCacheFile = "cache_persist.bin"

func newItem(value any, expires int) itemWithTTL {
	expires64 := int64(expires)
	if expires > 0 {
		expires64 = time.Now().Unix() + expires64
	}
	return itemWithTTL{
		Value:   value,
		Expires: expires64,
	}
}

// getValue 从itemWithTTL中取值
func getValue(item any, ok bool) (any, bool) {
	if !ok {
		return nil, ok
	}

	var itemObj itemWithTTL
	if itemObj, ok = item.(itemWithTTL); !ok {
		return item, true
	}

	if itemObj.Expires > 0 && itemObj.Expires < time.Now().Unix() {
		return nil, false
	}

	return itemObj.Value, ok
}

// GarbageCollect 回收已过期的缓存
func (store *MemoStore) GarbageCollect() {
	store.Store.Range(func(key, value any) bool {
		if item, ok := value.(itemWithTTL); ok {
			if item.Expires > 0 && item.Expires < time.Now().Unix() {
				store.Store.Delete(key)
			}
		}
		return true
	})
}

// NewMemoStore 新建内存存储
func NewMemoStore() *MemoStore {
	return &MemoStore{
		Store: &sync.Map{},
	}
}

// Set 存储值
func (store *MemoStore) Set(key string, value any, ttl int) error {
	store.Store.Store(key, newItem(value, ttl))
	return nil
}

// Get 取值
func (store *MemoStore) Get(key string) (any, bool) {
	return getValue(store.Store.Load(key))
}

// Gets 批量取值
func (store *MemoStore) Gets(keys []string, prefix string) (map[string]any, []string) {
	var res = make(map[string]any)
	var notFound = make([]string, 0, len(keys))

	for _, key := range keys {
		if value, ok := getValue(store.Store.Load(prefix + key)); ok {
			res[key] = value
		} else {
			notFound = append(notFound, key)
		}
	}

	return res, notFound
}

// Sets 批量设置值
func (store *MemoStore) Sets(values map[string]any, prefix string) error {
	for key, value := range values {
		store.Store.Store(prefix+key, newItem(value, 0))
	}
	return nil
}

// Delete 批量删除值
func (store *MemoStore) Delete(prefix string, keys ...string) error {
	if len(keys) == 0 {
		store.Store.Range(func(key, value any) bool {
			if strings.HasPrefix(key.(string), prefix) {
				store.Store.Delete(key)
			}
			return true
		})
		return nil
	}

	for _, key := range keys {
		store.Store.Delete(prefix + key)
	}
	return nil
}

// Keys 返回所有给定前缀的键
func (store *MemoStore) Keys(prefix string) ([]string, error) {
	res := make([]string, 0)
	store.Store.Range(func(key, value any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			if _, ok := getValue(value, true); ok {
				res = append(res, key.(string))
			}
		}
		return true
	})
	return res, nil
}

// DeleteAll 清空存储
func (store *MemoStore) DeleteAll() error {
	store.Store.Range(func(key, value any) bool {
		store.Store.Delete(key)
		return true
	})
	return nil
}

// Persist 将内存中的缓存持久化到磁盘
func (store *MemoStore) Persist(path string) error {
	persisted := make(map[string]itemWithTTL)
	store.Store.Range(func(key, value any) bool {
		if item, ok := value.(itemWithTTL); ok {
			persisted[key.(string)] = item
		}
		return true
	})

	res := &bytes.Buffer{}
	enc := gob.NewEncoder(res)
	if err := enc.Encode(persisted); err != nil {
		return err
	}

	f, err := util.CreatNestedFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(res.Bytes())
	return err
}

// Restore 从磁盘恢复持久化的缓存
func (store *MemoStore) Restore(path string) error {
	if !util.Exists(path) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		f.Close()
		os.Remove(path)
	}()

	persisted := make(map[string]itemWithTTL)
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&persisted); err != nil {
		return err
	}

	for key, item := range persisted {
		if item.Expires > 0 && item.Expires < time.Now().Unix() {
			continue
		}
		store.Store.Store(key, item)
	}

	return nil
}
