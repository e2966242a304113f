package manifest

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/keshon/bvctree/internal/hash"
)

// ListingEntry is one line of a persisted tree.
type ListingEntry struct {
	Name Element
	ID   hash.ID
	Type Type
}

// Listing is the parsed content of a persisted tree, sorted by name.
type Listing []ListingEntry

// Lookup finds name by binary search.
func (l Listing) Lookup(name Element) (ListingEntry, bool) {
	i := sort.Search(len(l), func(i int) bool { return l[i].Name >= name })
	if i < len(l) && l[i].Name == name {
		return l[i], true
	}
	return ListingEntry{}, false
}

// EncodeRecord serializes entries into the canonical tree record:
//
//	<name> NUL <hex id> <type tag> LF
//
// one line per entry, sorted by name byte-wise. The content identifier of a
// tree is the hash of exactly these bytes, so the layout must not change.
func EncodeRecord(entries []ListingEntry) []byte {
	sorted := make([]ListingEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	size := 0
	for _, e := range sorted {
		size += len(e.Name) + len(e.ID) + 3
	}
	buf := make([]byte, 0, size)
	for _, e := range sorted {
		buf = append(buf, string(e.Name)...)
		buf = append(buf, 0)
		buf = append(buf, string(e.ID)...)
		buf = append(buf, e.Type.Tag(), '\n')
	}
	return buf
}

// ParseRecord decodes a canonical tree record. Entries must be strictly
// ascending by name.
func ParseRecord(data []byte) (Listing, error) {
	var out Listing
	for line := 1; len(data) > 0; line++ {
		end := bytes.IndexByte(data, '\n')
		if end < 0 {
			return nil, fmt.Errorf("%w: line %d not terminated", ErrInvalidRecord, line)
		}
		rec := data[:end]
		data = data[end+1:]

		nul := bytes.IndexByte(rec, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: line %d has no name separator", ErrInvalidRecord, line)
		}
		name, err := NewElement(string(rec[:nul]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, line, err)
		}
		rest := rec[nul+1:]
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: line %d too short", ErrInvalidRecord, line)
		}
		typ := Type(rest[len(rest)-1])
		if !typ.Valid() {
			return nil, fmt.Errorf("%w: line %d has unknown type tag %q", ErrInvalidRecord, line, rest[len(rest)-1])
		}
		id, err := hash.Parse(string(rest[:len(rest)-1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, line, err)
		}
		if n := len(out); n > 0 && out[n-1].Name >= name {
			return nil, fmt.Errorf("%w: %q out of order after %q", ErrInvalidRecord, name, out[n-1].Name)
		}
		out = append(out, ListingEntry{Name: name, ID: id, Type: typ})
	}
	return out, nil
}
