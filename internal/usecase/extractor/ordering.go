package extractor

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/futig/formchat-backend/internal/entity"
)

// leadingOrdinal finds the index token at the start of an identifier: "Q12|...", "Question 3", "4. ..."
var leadingOrdinal = regexp.MustCompile(`(?i)^\s*(?:q(?:uestion)?[\s_#-]*)?(\d+)`)

func ordinal(id string) (int, bool) {
	m := leadingOrdinal.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// orderByOrdinal stably sorts fields by their numeric ordinal. Fields without
// one go last, ordered by identifier.
func orderByOrdinal(fields []entity.FormField) []entity.FormField {
	type keyed struct {
		field   entity.FormField
		ordinal int
		ok      bool
	}

	items := make([]keyed, len(fields))
	for i, f := range fields {
		n, ok := ordinal(f.ID)
		items[i] = keyed{field: f, ordinal: n, ok: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.ok && b.ok:
			return a.ordinal < b.ordinal
		case a.ok != b.ok:
			return a.ok
		default:
			return a.field.ID < b.field.ID
		}
	})

	out := make([]entity.FormField, len(items))
	for i, it := range items {
		out[i] = it.field
	}
	return out
}
