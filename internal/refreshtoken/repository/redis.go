package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"ztcp-auth/internal/refreshtoken/domain"
)

// DefaultRedisPrefix namespaces every key written by RedisRepository.
const DefaultRedisPrefix = "ztcp"

// Deletes one token and its index entries. Returns the DEL reply so exactly one caller sees 1.
const deleteTokenScript = `
local sid = redis.call("HGET", KEYS[1], "session_id")
local pid = redis.call("HGET", KEYS[1], "principal_id")
local removed = redis.call("DEL", KEYS[1])
if sid then redis.call("SREM", ARGV[1] .. sid, ARGV[3]) end
if pid then redis.call("SREM", ARGV[2] .. pid, ARGV[3]) end
return removed
`

// Deletes every token listed in the index set KEYS[1]; ARGV[3] names the other index to clean.
const deleteIndexedScript = `
local hashes = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, h in ipairs(hashes) do
  local key = ARGV[1] .. h
  local other = redis.call("HGET", key, ARGV[3])
  n = n + redis.call("DEL", key)
  if other then redis.call("SREM", ARGV[2] .. other, h) end
end
redis.call("DEL", KEYS[1])
return n
`

var (
	deleteTokenLua   = redis.NewScript(deleteTokenScript)
	deleteIndexedLua = redis.NewScript(deleteIndexedScript)
)

// RedisRepository stores each refresh token as a hash that expires at the token's expiry,
// with per-session and per-principal index sets for bulk deletion.
// The Lua scripts derive index keys from token fields, so the store needs a single-node
// client; Redis Cluster would reject the undeclared keys.
type RedisRepository struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRepository returns a Redis-backed store. An empty prefix uses DefaultRedisPrefix.
func NewRedisRepository(rdb *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisRepository) tokenKey(hash string) string { return r.prefix + ":rt:" + hash }
func (r *RedisRepository) sessionPrefix() string       { return r.prefix + ":rts:" }
func (r *RedisRepository) principalPrefix() string     { return r.prefix + ":rtp:" }

func (r *RedisRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	fields := map[string]any{
		"id":           t.ID,
		"principal_id": t.PrincipalID,
		"session_id":   t.SessionID,
		"expires_at":   strconv.FormatInt(t.ExpiresAt.UnixNano(), 10),
		"created_at":   strconv.FormatInt(t.CreatedAt.UnixNano(), 10),
	}
	if t.UserAgent != nil {
		fields["user_agent"] = *t.UserAgent
	}
	key := r.tokenKey(t.TokenHash)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.PExpireAt(ctx, key, t.ExpiresAt)
		pipe.SAdd(ctx, r.sessionPrefix()+t.SessionID, t.TokenHash)
		pipe.SAdd(ctx, r.principalPrefix()+t.PrincipalID, t.TokenHash)
		return nil
	})
	if err != nil {
		return oops.Code("REFRESH_TOKEN_CREATE_FAILED").With("session_id", t.SessionID).Wrap(err)
	}
	return nil
}

func (r *RedisRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	vals, err := r.rdb.HGetAll(ctx, r.tokenKey(tokenHash)).Result()
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_QUERY_FAILED").Wrap(err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	t, err := decodeToken(tokenHash, vals)
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_CORRUPT").Wrap(err)
	}
	return t, nil
}

func (r *RedisRepository) DeleteByHash(ctx context.Context, tokenHash string) (bool, error) {
	n, err := deleteTokenLua.Run(ctx, r.rdb, []string{r.tokenKey(tokenHash)},
		r.sessionPrefix(), r.principalPrefix(), tokenHash).Int64()
	if err != nil {
		return false, oops.Code("REFRESH_TOKEN_DELETE_FAILED").Wrap(err)
	}
	return n == 1, nil
}

func (r *RedisRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	n, err := deleteIndexedLua.Run(ctx, r.rdb, []string{r.sessionPrefix() + sessionID},
		r.prefix+":rt:", r.principalPrefix(), "principal_id").Int64()
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_DELETE_FAILED").With("session_id", sessionID).Wrap(err)
	}
	return n, nil
}

func (r *RedisRepository) DeleteByPrincipal(ctx context.Context, principalID string) (int64, error) {
	n, err := deleteIndexedLua.Run(ctx, r.rdb, []string{r.principalPrefix() + principalID},
		r.prefix+":rt:", r.sessionPrefix(), "session_id").Int64()
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_DELETE_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return n, nil
}

// DeleteExpired removes tokens whose expiry is before the given time that Redis has not
// evicted yet, and prunes session and principal index entries of tokens that are already gone.
// It returns the number of distinct tokens pruned.
func (r *RedisRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	pruned := make(map[string]struct{})
	for _, prefix := range []string{r.sessionPrefix(), r.principalPrefix()} {
		if err := r.pruneIndexes(ctx, prefix, before, pruned); err != nil {
			return int64(len(pruned)), err
		}
	}
	return int64(len(pruned)), nil
}

// pruneIndexes walks every index set under prefix. Evicted tokens leave no hash behind, so the
// delete script cannot find their other index; each index is cleaned on its own pass.
func (r *RedisRepository) pruneIndexes(ctx context.Context, prefix string, before time.Time, pruned map[string]struct{}) error {
	iter := r.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		idx := iter.Val()
		hashes, err := r.rdb.SMembers(ctx, idx).Result()
		if err != nil {
			return oops.Code("REFRESH_TOKEN_PURGE_FAILED").With("index", idx).Wrap(err)
		}
		for _, h := range hashes {
			expiresAt, err := r.rdb.HGet(ctx, r.tokenKey(h), "expires_at").Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return oops.Code("REFRESH_TOKEN_PURGE_FAILED").With("index", idx).Wrap(err)
			}
			if err == nil && !time.Unix(0, expiresAt).Before(before) {
				continue
			}
			if _, err := deleteTokenLua.Run(ctx, r.rdb, []string{r.tokenKey(h)},
				r.sessionPrefix(), r.principalPrefix(), h).Result(); err != nil {
				return oops.Code("REFRESH_TOKEN_PURGE_FAILED").With("index", idx).Wrap(err)
			}
			if err := r.rdb.SRem(ctx, idx, h).Err(); err != nil {
				return oops.Code("REFRESH_TOKEN_PURGE_FAILED").With("index", idx).Wrap(err)
			}
			pruned[h] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return oops.Code("REFRESH_TOKEN_PURGE_FAILED").With("prefix", prefix).Wrap(err)
	}
	return nil
}

func decodeToken(hash string, vals map[string]string) (*domain.RefreshToken, error) {
	expires, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return nil, err
	}
	created, err := strconv.ParseInt(vals["created_at"], 10, 64)
	if err != nil {
		return nil, err
	}
	t := &domain.RefreshToken{
		ID:          vals["id"],
		PrincipalID: vals["principal_id"],
		SessionID:   vals["session_id"],
		TokenHash:   hash,
		ExpiresAt:   time.Unix(0, expires).UTC(),
		CreatedAt:   time.Unix(0, created).UTC(),
	}
	if ua, ok := vals["user_agent"]; ok {
		t.UserAgent = &ua
	}
	return t, nil
}
