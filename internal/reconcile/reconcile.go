package reconcile

import (
	"slices"
	"strconv"
	"strings"
)

// Plan - изменения, приводящие текущее множество к желаемому.
// ToAdd и ToRemove не пересекаются и отсортированы.
type Plan struct {
	ToAdd    []int64
	ToRemove []int64
}

func (p Plan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Diff считает ToAdd = desired \ current и ToRemove = current \ desired.
// Повторы во входных данных схлопываются.
func Diff(desired, current []int64) Plan {
	want := toSet(desired)
	have := toSet(current)

	var plan Plan
	for id := range want {
		if _, ok := have[id]; !ok {
			plan.ToAdd = append(plan.ToAdd, id)
		}
	}
	for id := range have {
		if _, ok := want[id]; !ok {
			plan.ToRemove = append(plan.ToRemove, id)
		}
	}
	slices.Sort(plan.ToAdd)
	slices.Sort(plan.ToRemove)
	return plan
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

type Invalid struct {
	Value  string
	Reason string
}

// NormalizeIDs приводит внешние идентификаторы к int64.
// Строки и числа с пробелами допускаются, остальное попадает в invalid.
func NormalizeIDs(raw []string) (ids []int64, invalid []Invalid) {
	for _, v := range raw {
		s := strings.TrimSpace(v)
		id, err := strconv.ParseInt(s, 10, 64)
		switch {
		case err != nil:
			invalid = append(invalid, Invalid{Value: v, Reason: "not an integer id"})
		case id <= 0:
			invalid = append(invalid, Invalid{Value: v, Reason: "id must be positive"})
		default:
			ids = append(ids, id)
		}
	}
	return ids, invalid
}
