// Package redis stores listing documents as Redis hashes.
//
// Layout under the configured prefix:
//
//	<prefix>:listing:<id>   hash of flattened listing fields plus _revision
//	<prefix>:ids            set of listing ids
//	<prefix>:revision       collection revision counter (INCR)
//	<prefix>:changes        pub/sub channel carrying the revision of every write
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/pkg/logger"
)

const revisionField = "_revision"

// Store is a domain.Store backed by Redis
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New creates a Store using rdb; keys are namespaced by prefix.
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "marketplace"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) docKey(id string) string { return s.prefix + ":listing:" + id }
func (s *Store) idsKey() string         { return s.prefix + ":ids" }
func (s *Store) revisionKey() string    { return s.prefix + ":revision" }
func (s *Store) channel() string        { return s.prefix + ":changes" }

// Subscribe delivers the current snapshot and a fresh snapshot after every change notification.
func (s *Store) Subscribe(ctx context.Context) (<-chan domain.Snapshot, error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel(), err)
	}

	out := make(chan domain.Snapshot, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		s.push(ctx, out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				// drain notifications that arrived meanwhile; one List covers them all
				for drained := false; !drained; {
					select {
					case _, ok = <-msgs:
						if !ok {
							return
						}
					default:
						drained = true
					}
				}
				s.push(ctx, out)
			}
		}
	}()
	return out, nil
}

func (s *Store) push(ctx context.Context, out chan domain.Snapshot) {
	snap, err := s.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithContext(ctx).Error().Err(err).Msg("Failed to load listing snapshot from redis")
		}
		return
	}
	select {
	case pending := <-out:
		if pending.Revision > snap.Revision {
			snap = pending
		}
	default:
	}
	select {
	case out <- snap:
	case <-ctx.Done():
	}
}

// List reads every listing. The snapshot revision is read before the documents,
// so documents may be newer than the snapshot but never older.
func (s *Store) List(ctx context.Context) (domain.Snapshot, error) {
	rev, err := s.rdb.Get(ctx, s.revisionKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, fmt.Errorf("read revision: %w", err)
	}

	ids, err := s.rdb.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list listing ids: %w", err)
	}
	sort.Strings(ids)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.docKey(id))
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load listings: %w", err)
	}

	snap := domain.Snapshot{Revision: rev, Documents: make([]domain.Document, 0, len(ids))}
	for i, id := range ids {
		vals := cmds[i].Val()
		if len(vals) == 0 {
			continue
		}
		snap.Documents = append(snap.Documents, toDocument(id, vals))
	}
	return snap, nil
}

// Get reads one listing
func (s *Store) Get(ctx context.Context, id string) (domain.Document, error) {
	vals, err := s.rdb.HGetAll(ctx, s.docKey(id)).Result()
	if err != nil {
		return domain.Document{}, fmt.Errorf("get listing %s: %w", id, err)
	}
	if len(vals) == 0 {
		return domain.Document{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return toDocument(id, vals), nil
}

// Set creates or replaces a listing
func (s *Store) Set(ctx context.Context, id string, fields domain.Record) (domain.Document, error) {
	flat, err := flatten(fields)
	if err != nil {
		return domain.Document{}, err
	}

	var rev int64
	key := s.docKey(id)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		if rev, err = tx.Incr(ctx, s.revisionKey()).Result(); err != nil {
			return err
		}
		flat[revisionField] = strconv.FormatInt(rev, 10)
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			p.HSet(ctx, key, hashArgs(flat))
			p.SAdd(ctx, s.idsKey(), id)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return domain.Document{}, s.txError("set", id, err)
	}

	s.notify(ctx, rev)
	return toDocument(id, flat), nil
}

// Update merges fields into a listing when its revision still matches expectedRevision.
func (s *Store) Update(ctx context.Context, id string, fields domain.Record, expectedRevision int64) (domain.Document, error) {
	flat, err := flatten(fields)
	if err != nil {
		return domain.Document{}, err
	}

	var merged map[string]string
	var rev int64
	key := s.docKey(id)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		have, _ := strconv.ParseInt(current[revisionField], 10, 64)
		if expectedRevision != domain.AnyRevision && have != expectedRevision {
			return fmt.Errorf("listing %s at revision %d, expected %d: %w", id, have, expectedRevision, domain.ErrConflict)
		}

		if rev, err = tx.Incr(ctx, s.revisionKey()).Result(); err != nil {
			return err
		}
		merged = current
		for k, v := range flat {
			merged[k] = v
		}
		merged[revisionField] = strconv.FormatInt(rev, 10)

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, hashArgs(merged))
			return nil
		})
		return err
	}, key)
	if err != nil {
		return domain.Document{}, s.txError("update", id, err)
	}

	s.notify(ctx, rev)
	return toDocument(id, merged), nil
}

// Delete removes a listing and returns the revision of the deletion
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	var rev int64
	key := s.docKey(id)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		if rev, err = tx.Incr(ctx, s.revisionKey()).Result(); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			p.SRem(ctx, s.idsKey(), id)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return 0, s.txError("delete", id, err)
	}

	s.notify(ctx, rev)
	return rev, nil
}

func (s *Store) txError(op, id string, err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%s listing %s: concurrent write: %w", op, id, domain.ErrConflict)
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
		return err
	}
	return fmt.Errorf("%s listing %s: %w", op, id, err)
}

// notify is best effort; subscribers also converge on the next change or refresh.
func (s *Store) notify(ctx context.Context, rev int64) {
	if err := s.rdb.Publish(ctx, s.channel(), rev).Err(); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Int64("revision", rev).Msg("Failed to publish listing change")
	}
}

func toDocument(id string, vals map[string]string) domain.Document {
	rev, _ := strconv.ParseInt(vals[revisionField], 10, 64)
	fields := make(domain.Record, len(vals))
	for k, v := range vals {
		if k == revisionField {
			continue
		}
		fields[k] = v
	}
	return domain.Document{ID: id, Revision: rev, Fields: fields}
}

func hashArgs(vals map[string]string) map[string]any {
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		out[k] = v
	}
	return out
}

// flatten renders record values as hash strings; nested values become JSON.
func flatten(fields domain.Record) (map[string]string, error) {
	out := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case int:
			out[k] = strconv.Itoa(t)
		case int64:
			out[k] = strconv.FormatInt(t, 10)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		case time.Time:
			out[k] = strconv.FormatInt(t.UTC().UnixMilli(), 10)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("encode field %s: %w", k, err)
			}
			out[k] = string(b)
		}
	}
	return out, nil
}
