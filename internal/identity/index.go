// Package identity builds O(1) lookup maps over one raw record set at a
// time, keyed by normalized phone, normalized email, and external
// identifier. The index is immutable after Build and safe for concurrent
// readers.
package identity

// Keys holds the normalized lookup keys extracted from one record. Empty
// keys simply do not populate the corresponding map.
type Keys struct {
	Phone      string
	Emails     []string
	ExternalID string
}

// Index is a three-way lookup over a record set. Values are slices so
// multi-owner collisions stay observable instead of being overwritten.
type Index[T any] struct {
	byPhone      map[string][]T
	byEmail      map[string][]T
	byExternalID map[string][]T
}

// Build constructs an Index in O(n). keyFn extracts the already-normalized
// keys for each record; records missing a key field skip that map.
func Build[T any](records []T, keyFn func(T) Keys) *Index[T] {
	ix := &Index[T]{
		byPhone:      make(map[string][]T, len(records)),
		byEmail:      make(map[string][]T, len(records)),
		byExternalID: make(map[string][]T, len(records)),
	}
	for _, rec := range records {
		k := keyFn(rec)
		if k.Phone != "" {
			ix.byPhone[k.Phone] = append(ix.byPhone[k.Phone], rec)
		}
		for _, e := range k.Emails {
			if e != "" {
				ix.byEmail[e] = append(ix.byEmail[e], rec)
			}
		}
		if k.ExternalID != "" {
			ix.byExternalID[k.ExternalID] = append(ix.byExternalID[k.ExternalID], rec)
		}
	}
	return ix
}

// ByPhone returns every record sharing the given normalized phone.
func (ix *Index[T]) ByPhone(phone string) []T {
	if phone == "" {
		return nil
	}
	return ix.byPhone[phone]
}

// ByEmail returns every record sharing the given normalized email.
func (ix *Index[T]) ByEmail(email string) []T {
	if email == "" {
		return nil
	}
	return ix.byEmail[email]
}

// ByExternalID returns every record carrying the given external identifier.
func (ix *Index[T]) ByExternalID(id string) []T {
	if id == "" {
		return nil
	}
	return ix.byExternalID[id]
}

// PhoneCollisions returns phone keys owned by more than one record.
func (ix *Index[T]) PhoneCollisions() map[string][]T {
	return collisions(ix.byPhone)
}

// EmailCollisions returns email keys owned by more than one record.
func (ix *Index[T]) EmailCollisions() map[string][]T {
	return collisions(ix.byEmail)
}

func collisions[T any](m map[string][]T) map[string][]T {
	out := make(map[string][]T)
	for k, v := range m {
		if len(v) > 1 {
			out[k] = v
		}
	}
	return out
}
