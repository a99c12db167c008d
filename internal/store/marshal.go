package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// marshalIDSet serializes a set of ids as a sorted JSON array.
// Sorting keeps the stored text deterministic regardless of map order,
// so identical sets always produce identical rows.
func marshalIDSet(set map[uint64]struct{}) (string, error) {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal id set: %w", err)
	}
	return string(raw), nil
}

// unmarshalIDSet decodes a JSON array of ids back into a set.
func unmarshalIDSet(raw string) (map[uint64]struct{}, error) {
	var ids []uint64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal id set: %w", err)
	}
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
