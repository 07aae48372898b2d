package trip

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Fingerprint subsets per research section. Each stage hashes only the
// fields whose change should invalidate its cached research.
var (
	TravelFingerprintFields     = []string{"origin", "destination", "departure_date", "return_date", "duration_days"}
	StaysFingerprintFields      = []string{"destination", "departure_date", "return_date", "duration_days", "travel_pack"}
	ActivitiesFingerprintFields = []string{"destination", "departure_date", "return_date", "duration_days", "trip_purpose", "travel_pack"}
)

// Fingerprint computes a stable hex digest over the named fields of the
// given map. Values are normalized first: empty strings, "null"/"none"/"n/a"
// sentinels and absent keys all collapse to the same nil so that superficial
// representation changes never force a re-run. Key order does not matter.
func Fingerprint(fields map[string]any, subset []string) string {
	keys := append([]string(nil), subset...)
	sort.Strings(keys)

	norm := make(map[string]any, len(keys))
	for _, k := range keys {
		norm[k] = normalizeFingerprintValue(fields[k])
	}

	// json.Marshal on a map emits keys in sorted order, which makes the
	// digest independent of insertion order.
	b, err := json.Marshal(norm)
	if err != nil {
		return ""
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func normalizeFingerprintValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s := NormalizeValue(x)
		if s == "" {
			return nil
		}
		return s
	case int:
		if x == 0 {
			return nil
		}
		return x
	case float64:
		if x == 0 {
			return nil
		}
		return x
	default:
		return v
	}
}

// ConfirmationHash identifies one exact set of core trip facts for the
// confirm-once handshake. Once the user confirms a summary, the hash is
// pinned; re-confirmation is only requested when the facts change.
func ConfirmationHash(ti TripInfo) string {
	parts := []string{
		strings.ToLower(NormalizeValue(ti.Origin)),
		strings.ToLower(NormalizeValue(ti.Destination)),
		NormalizeValue(ti.DepartureDate),
		NormalizeValue(ti.ReturnDate),
		strings.ToLower(NormalizeValue(ti.TripPurpose)),
		strings.ToLower(NormalizeValue(ti.TravelPack)),
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
