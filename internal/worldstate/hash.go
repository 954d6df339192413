package worldstate

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Hash returns a stable, deterministic fingerprint of every field in
// FieldOrder, used as the planner's closed-set key. It is not a
// cryptographic hash: a collision only costs a missed prune, never a
// correctness violation, since the planner always re-validates goal
// satisfaction against the real state before returning a plan.
func (s WorldState) Hash() uint64 {
	var b strings.Builder
	for _, field := range fieldOrder {
		val, _ := s.Get(field)
		b.WriteString(field)
		b.WriteByte('=')
		writeCanonical(&b, val)
		b.WriteByte(';')
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(b.String()))
	return h.Sum64()
}

func writeCanonical(b *strings.Builder, val interface{}) {
	switch t := val.(type) {
	case []string:
		sorted := append([]string(nil), t...)
		sort.Strings(sorted)
		b.WriteString(strings.Join(sorted, ","))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'f', 6, 64))
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case string:
		b.WriteString(t)
	default:
		b.WriteString("")
	}
}
