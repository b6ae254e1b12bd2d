package index

import (
	"encoding/json"
	"strings"
	"time"

	"cyberblog/internal/catalog"
	"cyberblog/internal/domain/build"
	"cyberblog/internal/domain/content"

	bolt "go.etcd.io/bbolt"
)

type ListOptions struct {
	Category string
	Tag      string
	Page     int
	Size     int
}

func (s *Store) Get(id string) (content.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return content.Post{}, ErrNotFound
	}
	var p content.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bMeta)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &p)
	})
	return p, err
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// List returns one page of posts, newest first, optionally narrowed to a
// category or a tag (category wins when both are set).
func (s *Store) List(opt ListOptions) ([]content.Post, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)
	cat := strings.TrimSpace(opt.Category)
	tag := strings.ToLower(strings.TrimSpace(opt.Tag))

	var out []content.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		metaB := tx.Bucket(bMeta)
		if metaB == nil {
			return nil
		}
		var idx *bolt.Bucket
		switch {
		case cat != "":
			if parent := tx.Bucket(bIdxCat); parent != nil {
				idx = parent.Bucket([]byte(cat))
			}
		case tag != "":
			if parent := tx.Bucket(bIdxTag); parent != nil {
				idx = parent.Bucket([]byte(tag))
			}
		default:
			idx = tx.Bucket(bIdxDate)
		}
		if idx == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := idx.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			id := idFromTimeIDKey(k)
			if id == "" {
				continue
			}
			v := metaB.Get([]byte(id))
			if v == nil {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			var p content.Post
			if err := json.Unmarshal(v, &p); err != nil {
				continue
			}
			out = append(out, p)
			if len(out) >= opt.Size {
				break
			}
		}
		return nil
	})
	return out, err
}

// Load rebuilds the catalog snapshot in its original order. Post bodies are
// not stored, so Content is empty.
func (s *Store) Load() (*catalog.Catalog, error) {
	var posts []content.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		orderB := tx.Bucket(bOrder)
		metaB := tx.Bucket(bMeta)
		if orderB == nil || metaB == nil {
			return nil
		}
		return orderB.ForEach(func(_, id []byte) error {
			v := metaB.Get(id)
			if v == nil {
				return nil
			}
			var p content.Post
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			posts = append(posts, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return catalog.New(posts), nil
}

// BuiltAt is the time of the last Rebuild, zero when there was none.
func (s *Store) BuiltAt() (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bState)
		if b == nil {
			return nil
		}
		v := b.Get(keyBuiltAt)
		if v == nil {
			return nil
		}
		return t.UnmarshalText(v)
	})
	return t, err
}

func (s *Store) Fingerprint(route string) (build.Fingerprint, error) {
	var fp build.Fingerprint
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bFingerprint)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(route))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &fp)
	})
	return fp, err
}

// PutFingerprints stores all page fingerprints of one build in a single
// transaction and forgets routes that are no longer built.
func (s *Store) PutFingerprints(fps map[string]build.Fingerprint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bFingerprint); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bFingerprint)
		if err != nil {
			return err
		}
		for route, fp := range fps {
			v, err := json.Marshal(fp)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(route), v); err != nil {
				return err
			}
		}
		return nil
	})
}
