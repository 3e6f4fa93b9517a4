package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/juliusdelta/oatmeal/internal/api"
	"github.com/juliusdelta/oatmeal/internal/domain"
	"github.com/juliusdelta/oatmeal/internal/secure"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore stores sessions, segments and audio in Redis,
// encrypted at rest.
type RedisSessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	crypter *secure.Crypter
}

// NewRedisSessionStore creates a store with connection pooling.
func NewRedisSessionStore(connStr string, encryptionKey string) (*RedisSessionStore, error) {
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	goapp.Log.Info().Str("redis", opt.Addr).Int("db", opt.DB).Send()
	rdb := redis.NewClient(opt)

	crypter, err := secure.NewCrypter(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create crypter: %w", err)
	}

	return &RedisSessionStore{
		client:  rdb,
		ttl:     time.Hour * 24,
		crypter: crypter,
	}, nil
}

func (r *RedisSessionStore) keySession(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (r *RedisSessionStore) keySegments(id, channel string) string {
	return fmt.Sprintf("segments:%s:%s", id, channel)
}

func (r *RedisSessionStore) keyAudio(id, channel string) string {
	return fmt.Sprintf("audio:%s:%s", id, channel)
}

func (r *RedisSessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.Set(ctx, r.keySession(session.ID), encrypted, r.ttl).Err()
}

func (r *RedisSessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	bs, err := r.client.Get(ctx, r.keySession(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	decrypted, err := r.crypter.Decrypt(bs)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(decrypted, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisSessionStore) SaveSegments(ctx context.Context, id, channel string, segments []api.Segment) error {
	goapp.Log.Trace().Str("id", id).Str("channel", channel).Int("count", len(segments)).Msg("Save segments")
	if _, err := r.GetSession(ctx, id); err != nil {
		return err
	}
	data, err := json.Marshal(domain.ChannelSegments{Segments: segments})
	if err != nil {
		return err
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.Set(ctx, r.keySegments(id, channel), encrypted, r.ttl).Err()
}

func (r *RedisSessionStore) GetSegments(ctx context.Context, id, channel string) ([]api.Segment, error) {
	if _, err := r.GetSession(ctx, id); err != nil {
		return nil, err
	}
	bs, err := r.client.Get(ctx, r.keySegments(id, channel)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get segments: %w", err)
	}
	decrypted, err := r.crypter.Decrypt(bs)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	var cs domain.ChannelSegments
	if err := json.Unmarshal(decrypted, &cs); err != nil {
		return nil, err
	}
	return cs.Segments, nil
}

// SaveAudio packs PCM chunks into WAV and stores the encrypted result.
func (r *RedisSessionStore) SaveAudio(ctx context.Context, id, channel string, chunks [][]byte) error {
	goapp.Log.Trace().Str("id", id).Str("channel", channel).Msg("Save audio")
	if _, err := r.GetSession(ctx, id); err != nil {
		return err
	}
	data, err := toWav(chunks)
	if err != nil {
		return fmt.Errorf("convert to wav: %w", err)
	}
	encrypted, err := r.crypter.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.Set(ctx, r.keyAudio(id, channel), encrypted, r.ttl).Err()
}

func (r *RedisSessionStore) GetAudio(ctx context.Context, id, channel string) ([]byte, error) {
	bs, err := r.client.Get(ctx, r.keyAudio(id, channel)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get audio: %w", err)
	}
	decrypted, err := r.crypter.Decrypt(bs)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return decrypted, nil
}

func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}
