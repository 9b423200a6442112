package engine

import (
	"fmt"

	"armsdash/internal/models"
)

// Period is an inclusive range on the delivery start year. The zero range means "All".
type Period struct {
	Name string
	From int
	To   int
}

var (
	PeriodAll       = Period{Name: "All"}
	PeriodPreWar    = Period{Name: "2014-2021", From: 2014, To: 2021}
	PeriodFullScale = Period{Name: "2022-2024", From: 2022, To: 2024}
)

// Periods lists the selector options in display order.
var Periods = []Period{PeriodAll, PeriodPreWar, PeriodFullScale}

// InvasionYear splits the register into the pre and post full-scale invasion groups.
const InvasionYear = 2022

// ParsePeriod resolves a selector value. An empty name selects All.
func ParsePeriod(name string) (Period, error) {
	if name == "" {
		return PeriodAll, nil
	}
	for _, p := range Periods {
		if p.Name == name {
			return p, nil
		}
	}
	return Period{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, name)
}

func (p Period) IsAll() bool {
	return p.From == 0 && p.To == 0
}

func (p Period) Contains(year int) bool {
	if p.IsAll() {
		return true
	}
	return year >= p.From && year <= p.To
}

func (p Period) Info() models.PeriodInfo {
	return models.PeriodInfo{Name: p.Name, From: p.From, To: p.To}
}

// Selection is a list of row indices into a TransferStore, in store order.
type Selection []int

// All selects every row.
func (s *TransferStore) All() Selection {
	sel := make(Selection, s.Len())
	for i := range sel {
		sel[i] = i
	}
	return sel
}

// Filter selects rows whose delivery start year falls inside the period.
func (s *TransferStore) Filter(p Period) Selection {
	if p.IsAll() {
		return s.All()
	}
	sel := make(Selection, 0, s.Len())
	for i, y := range s.YearStart {
		if p.Contains(int(y)) {
			sel = append(sel, i)
		}
	}
	return sel
}

// Partition splits every row on its delivery start year: before holds rows
// delivered earlier than split, after holds the rest.
func (s *TransferStore) Partition(split int) (before, after Selection) {
	for i, y := range s.YearStart {
		if int(y) < split {
			before = append(before, i)
		} else {
			after = append(after, i)
		}
	}
	return before, after
}
