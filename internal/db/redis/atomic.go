package redis

import (
	"context"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/fedsearch/internal/db"
)

// Conditional hash writes run server-side so the existence check and the
// write cannot interleave with another writer.
var (
	hsetIfAbsent = rueidis.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1`)

	hreplaceIfPresent = rueidis.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1`)

	hput = rueidis.NewLuaScript(`
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1`)
)

// HSetNX creates the hash only if key does not exist. It reports whether the hash was written.
func (s *Store) HSetNX(ctx context.Context, key string, fields map[string]string) (bool, error) {
	return s.execHash(ctx, hsetIfAbsent, db.OpHSetNX, key, fields)
}

// HReplace overwrites an existing hash, dropping fields absent from fields.
// It reports false without writing when key does not exist.
func (s *Store) HReplace(ctx context.Context, key string, fields map[string]string) (bool, error) {
	return s.execHash(ctx, hreplaceIfPresent, db.OpHReplace, key, fields)
}

// HPut creates or replaces the whole hash in one step. Readers never see
// the key missing or holding a mix of old and new fields.
func (s *Store) HPut(ctx context.Context, key string, fields map[string]string) error {
	_, err := s.execHash(ctx, hput, db.OpHPut, key, fields)
	return err
}

func (s *Store) execHash(ctx context.Context, script *rueidis.Lua, op, key string, fields map[string]string) (bool, error) {
	if len(fields) == 0 {
		return false, &db.Error{Op: op, Err: errEmptyHash}
	}
	n, err := script.Exec(ctx, s.client, []string{key}, flatten(fields)).AsInt64()
	if err != nil {
		return false, &db.Error{Op: op, Err: err}
	}
	return n == 1, nil
}

// flatten orders fields by name so the script arguments are deterministic.
func flatten(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]string, 0, 2*len(fields))
	for _, k := range names {
		args = append(args, k, fields[k])
	}
	return args
}
