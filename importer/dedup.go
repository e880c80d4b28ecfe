package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mekanics/beanport/bean"
)

// KeySet is the set of dedup keys seen so far. Callers persist it across
// runs (see the dedupdb package) and pass it back in, so re-importing the
// last N days every run never double-counts.
type KeySet struct {
	keys map[string]struct{}
}

// NewKeySet creates a KeySet seeded with the given keys.
func NewKeySet(keys ...string) *KeySet {
	s := &KeySet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// Has reports whether the key has been seen.
func (s *KeySet) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Add marks the key as seen.
func (s *KeySet) Add(key string) {
	s.keys[key] = struct{}{}
}

// Len returns the number of keys in the set.
func (s *KeySet) Len() int { return len(s.keys) }

// Keys returns all keys in unspecified order.
func (s *KeySet) Keys() []string {
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	return keys
}

// Key derives the dedup key of a directive: the external id when the source
// provided one, otherwise a content hash over date, amounts, and
// description. The hash is stable across runs and processes.
func Key(d bean.Directive) string {
	switch v := d.(type) {
	case *bean.Transaction:
		if id := v.Meta(MetaImportID); id != "" {
			return id
		}
		return contentHash(v)
	case *bean.Balance:
		// Balance assertions are idempotent by nature; key on their
		// identity so repeated imports collapse to one.
		return "balance|" + v.AssertDate.String() + "|" + string(v.Account) + "|" + v.Amount.String()
	default:
		return ""
	}
}

func contentHash(t *bean.Transaction) string {
	var b strings.Builder
	b.WriteString(t.TxnDate.String())
	b.WriteString("|")
	b.WriteString(t.Payee)
	b.WriteString("|")
	b.WriteString(t.Narration)
	for _, p := range t.Postings {
		b.WriteString("|")
		b.WriteString(string(p.Account))
		if p.Amount != nil {
			b.WriteString("|")
			b.WriteString(p.Amount.String())
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Dedup filters directives against the key set: directives whose key is
// already present are dropped, emitted keys are added. Running Dedup twice
// over its own output with the same growing set is a no-op, which is what
// makes overlapping date-range imports safe.
func Dedup(directives []bean.Directive, seen *KeySet) []bean.Directive {
	out := make([]bean.Directive, 0, len(directives))
	for _, d := range directives {
		key := Key(d)
		if key == "" {
			out = append(out, d)
			continue
		}
		if seen.Has(key) {
			continue
		}
		seen.Add(key)
		out = append(out, d)
	}
	return out
}
