package scoring

import (
	"sort"

	"auctionWatch/domain"
)

// EntityScores is the per-entity merge of every detector verdict from one
// run. Only detectors that actually analyzed the entity appear in
// Components; absent detectors leave the stored column untouched on upsert.
type EntityScores struct {
	Login      string
	Components map[string]float64
	Evidence   map[string][]Evidence
}

// Composite is the plain sum of the component scores present in this run.
// The persisted composite is recomputed by the rating store from all stored
// columns, so this value only ranks entities inside one run's report.
func (e EntityScores) Composite() float64 {
	var total float64
	for _, v := range e.Components {
		total += v
	}
	return total
}

func (e EntityScores) firedDetectors() int {
	n := 0
	for _, v := range e.Components {
		if v > 0 {
			n++
		}
	}
	return n
}

// Aggregate merges detector result sets keyed by detector name into one
// record per entity. A detector that returned no result set contributes
// nothing; its entities keep their previously stored component scores.
func Aggregate(resultSets map[string]ResultSet) []EntityScores {
	byLogin := make(map[string]*EntityScores)
	for detector, set := range resultSets {
		for login, res := range set {
			e, ok := byLogin[login]
			if !ok {
				e = &EntityScores{
					Login:      login,
					Components: make(map[string]float64),
					Evidence:   make(map[string][]Evidence),
				}
				byLogin[login] = e
			}
			e.Components[detector] = res.Score
			if res.Score > 0 {
				e.Evidence[detector] = append(e.Evidence[detector], res.Evidence...)
			}
		}
	}

	out := make([]EntityScores, 0, len(byLogin))
	for _, e := range byLogin {
		out = append(out, *e)
	}
	sortEntityScores(out)
	return out
}

// sortEntityScores orders by composite descending, then by the number of
// detectors that fired, then by login for a stable report.
func sortEntityScores(entities []EntityScores) {
	sort.Slice(entities, func(i, j int) bool {
		ci, cj := entities[i].Composite(), entities[j].Composite()
		if ci != cj {
			return ci > cj
		}
		fi, fj := entities[i].firedDetectors(), entities[j].firedDetectors()
		if fi != fj {
			return fi > fj
		}
		return entities[i].Login < entities[j].Login
	})
}

// Hypotheses derives the per-detector verdict for the run report. A
// detector that never produced a result set had no usable data; one that
// produced results confirms only if some entity scored above zero.
func Hypotheses(resultSets map[string]ResultSet) map[string]domain.HypothesisStatus {
	out := make(map[string]domain.HypothesisStatus, len(domain.AllDetectors))
	for _, detector := range domain.AllDetectors {
		set, ok := resultSets[detector]
		if !ok || set == nil {
			out[detector] = domain.HypothesisNoData
			continue
		}
		status := domain.HypothesisNotConfirmed
		for _, res := range set {
			if res.Score > 0 {
				status = domain.HypothesisConfirmed
				break
			}
		}
		out[detector] = status
	}
	return out
}
