package lobby

import "github.com/PrinceLee1/lovey-dovey/internal/domain"

// Roster is a presence member set. A member connected twice is counted
// twice so a joining/leaving pair always cancels out.
type Roster struct {
	order []int64
	info  map[int64]domain.Member
	count map[int64]int
}

// Reset replaces the set with an authoritative snapshot.
func (r *Roster) Reset(members []domain.Member) {
	r.order = r.order[:0]
	r.info = make(map[int64]domain.Member, len(members))
	r.count = make(map[int64]int, len(members))
	for _, m := range members {
		if _, ok := r.info[m.ID]; ok {
			continue
		}
		r.order = append(r.order, m.ID)
		r.info[m.ID] = m
		r.count[m.ID] = 1
	}
}

func (r *Roster) Join(m domain.Member) {
	if r.info == nil {
		r.Reset(nil)
	}
	if r.count[m.ID] == 0 {
		r.order = append(r.order, m.ID)
	}
	r.count[m.ID]++
	if m.Name != "" || r.info[m.ID].Name == "" {
		r.info[m.ID] = m
	}
}

func (r *Roster) Leave(m domain.Member) {
	n := r.count[m.ID]
	if n == 0 {
		return
	}
	if n > 1 {
		r.count[m.ID] = n - 1
		return
	}
	delete(r.count, m.ID)
	delete(r.info, m.ID)
	for i, id := range r.order {
		if id == m.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Members lists everyone present in arrival order.
func (r *Roster) Members() []domain.Member {
	out := make([]domain.Member, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.info[id])
	}
	return out
}

func (r *Roster) Has(id int64) bool { return r.count[id] > 0 }
