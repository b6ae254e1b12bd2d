package index

import (
	"encoding/json"
	"strings"
	"time"

	"cyberblog/internal/domain/content"

	bolt "go.etcd.io/bbolt"
)

// Rebuild replaces the catalog snapshot with posts, keeping their order.
// Fingerprints are left alone.
func (s *Store) Rebuild(posts []content.Post, builtAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bMeta, bOrder, bState, bIdxCat, bIdxTag, bIdxDate} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
		}

		metaB, err := tx.CreateBucket(bMeta)
		if err != nil {
			return err
		}
		orderB, err := tx.CreateBucket(bOrder)
		if err != nil {
			return err
		}
		stateB, err := tx.CreateBucket(bState)
		if err != nil {
			return err
		}
		idxCatB, err := tx.CreateBucket(bIdxCat)
		if err != nil {
			return err
		}
		idxTagB, err := tx.CreateBucket(bIdxTag)
		if err != nil {
			return err
		}
		idxDateB, err := tx.CreateBucket(bIdxDate)
		if err != nil {
			return err
		}

		var seq uint64
		for _, p := range posts {
			if strings.TrimSpace(p.ID) == "" {
				continue
			}
			// 正文不进索引
			p.Content = ""
			mb, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if metaB.Get([]byte(p.ID)) != nil {
				// 重复 id：旧的索引项要删掉
				if err := deleteIndexed(tx, metaB, p.ID); err != nil {
					return err
				}
			}
			if err := metaB.Put([]byte(p.ID), mb); err != nil {
				return err
			}
			seq++
			if err := orderB.Put(seqKey(seq), []byte(p.ID)); err != nil {
				return err
			}

			key := makeTimeIDKey(p.Date, p.ID)
			if err := idxDateB.Put(key, []byte{1}); err != nil {
				return err
			}
			if cat := strings.TrimSpace(p.Category); cat != "" {
				sb, err := idxCatB.CreateBucketIfNotExists([]byte(cat))
				if err != nil {
					return err
				}
				if err := sb.Put(key, []byte{1}); err != nil {
					return err
				}
			}
			for _, tag := range p.Tags {
				tag = strings.ToLower(strings.TrimSpace(tag))
				if tag == "" {
					continue
				}
				sb, err := idxTagB.CreateBucketIfNotExists([]byte(tag))
				if err != nil {
					return err
				}
				if err := sb.Put(key, []byte{1}); err != nil {
					return err
				}
			}
		}

		ts, err := builtAt.UTC().MarshalText()
		if err != nil {
			return err
		}
		return stateB.Put(keyBuiltAt, ts)
	})
}

// deleteIndexed drops the index entries of the stored post with id. Its
// order entry stays, Load collapses repeated ids the way catalog.New does.
func deleteIndexed(tx *bolt.Tx, metaB *bolt.Bucket, id string) error {
	var old content.Post
	if err := json.Unmarshal(metaB.Get([]byte(id)), &old); err != nil {
		return err
	}
	key := makeTimeIDKey(old.Date, old.ID)
	if err := tx.Bucket(bIdxDate).Delete(key); err != nil {
		return err
	}
	if sb := tx.Bucket(bIdxCat).Bucket([]byte(old.Category)); sb != nil {
		if err := sb.Delete(key); err != nil {
			return err
		}
	}
	for _, tag := range old.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if sb := tx.Bucket(bIdxTag).Bucket([]byte(tag)); tag != "" && sb != nil {
			if err := sb.Delete(key); err != nil {
				return err
			}
		}
	}
	return nil
}
