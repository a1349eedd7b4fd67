package seat

import (
	"sort"
	"strconv"
	"strings"
)

// NumericPart はIDから数字以外を取り除いた値を返す
// 数字を含まない、または桁あふれする場合は false
func NumericPart(id string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextID は既存IDの数値部分の最大値 + 1 を返す
// 数値として読めるIDがなければ "1"
func NextID(existing []string) string {
	maxID := 0
	for _, id := range existing {
		if n, ok := NumericPart(id); ok && n > maxID {
			maxID = n
		}
	}
	return strconv.Itoa(maxID + 1)
}

// NextIDs は NextID の規則で連番を count 個返す
func NextIDs(existing []string, count int) []string {
	ids := make([]string, 0, count)
	seen := append([]string(nil), existing...)
	for i := 0; i < count; i++ {
		id := NextID(seen)
		ids = append(ids, id)
		seen = append(seen, id)
	}
	return ids
}

// SortByID は数値部分の昇順に並べる
// 数値を持たないIDは後ろ、同値はID文字列順
func SortByID(seats []*Seat) {
	sort.SliceStable(seats, func(i, j int) bool {
		return lessID(seats[i].ID, seats[j].ID)
	})
}

func lessID(a, b string) bool {
	na, okA := NumericPart(a)
	nb, okB := NumericPart(b)
	switch {
	case okA && okB && na != nb:
		return na < nb
	case okA != okB:
		return okA
	}
	return a < b
}
