package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"

	"courier_platform/internal/domain"
	"courier_platform/internal/repository"
)

// ErrDuplicateBinding signals that two couriers hold the same external id.
// The binding column is unique, so seeing this means corrupted data.
var ErrDuplicateBinding = errors.New("external id bound to more than one courier")

type ResolveReason string

const (
	ReasonExternalIDHit ResolveReason = "external_id_hit"
	ReasonProfileMatch  ResolveReason = "profile_match"
)

// Candidate is a scored suggestion surfaced to the operator for an
// unresolved row.
type Candidate struct {
	CourierID int64  `json:"courier_id"`
	FullName  string `json:"full_name"`
	City      string `json:"city"`
	Phone     string `json:"phone"`
	Score     int    `json:"score"`
}

// Resolution is the resolver verdict: either a matched courier with the
// reason, or an unresolved row with scored candidates.
type Resolution struct {
	Courier    *domain.Courier
	Reason     ResolveReason
	Learned    bool
	Candidates []Candidate
}

func (r *Resolution) Resolved() bool { return r.Courier != nil }

type Resolver struct {
	couriers *repository.CourierRepository
}

func NewResolver(couriers *repository.CourierRepository) *Resolver {
	return &Resolver{couriers: couriers}
}

// Resolve maps a CSV row to an internal courier. The lookup ladder is tried
// in order and the first hit wins; profile matches (steps 2-4) learn the
// external id binding when the courier has none yet.
func (r *Resolver) Resolve(ctx context.Context, row Row) (*Resolution, error) {
	// 1. external id hit
	courier, err := r.couriers.GetByExternalID(ctx, row.ExternalID)
	if err != nil {
		return nil, err
	}
	if courier != nil {
		if n, err := r.couriers.CountByExternalID(ctx, row.ExternalID); err != nil {
			return nil, err
		} else if n > 1 {
			return nil, ErrDuplicateBinding
		}
		return &Resolution{Courier: courier, Reason: ReasonExternalIDHit}, nil
	}

	phone4 := PhoneLast4(row.Phone)

	// 2. exact name + city + phone tail
	if phone4 != "" {
		courier, err = r.couriers.FindByNameCityPhone(ctx, row.FullName(), row.TargetCity, phone4)
		if err != nil {
			return nil, err
		}
	}

	// 3. exact name + city, only couriers without a prior binding
	if courier == nil {
		courier, err = r.couriers.FindByNameCityUnbound(ctx, row.FullName(), row.TargetCity)
		if err != nil {
			return nil, err
		}
	}

	// 4. reversed name order + city
	if courier == nil {
		courier, err = r.couriers.FindByNameCityUnbound(ctx, row.ReversedName(), row.TargetCity)
		if err != nil {
			return nil, err
		}
	}

	if courier != nil {
		learned := false
		if courier.ExternalID == nil {
			learned, err = r.couriers.LearnExternalID(ctx, courier.ID, row.ExternalID)
			if err != nil {
				return nil, err
			}
		}
		return &Resolution{Courier: courier, Reason: ReasonProfileMatch, Learned: learned}, nil
	}

	// 5. fuzzy candidate set for the operator
	candidates, err := r.fuzzyCandidates(ctx, row, phone4)
	if err != nil {
		return nil, err
	}
	return &Resolution{Candidates: candidates}, nil
}

func (r *Resolver) fuzzyCandidates(ctx context.Context, row Row, phone4 string) ([]Candidate, error) {
	tokens := nameTokens(row.FullName())

	var pool []domain.Courier
	if phone4 != "" {
		byCityPhone, err := r.couriers.FindActiveByCityPhone(ctx, row.TargetCity, phone4)
		if err != nil {
			return nil, err
		}
		for _, c := range byCityPhone {
			if anyTokenMatch(tokens, c.FullName) {
				pool = append(pool, c)
			}
		}
	}

	if len(pool) == 0 && len(tokens) > 0 {
		byName, err := r.couriers.SearchByNameTokens(ctx, tokens, 3)
		if err != nil {
			return nil, err
		}
		pool = byName
	}

	candidates := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		candidates = append(candidates, Candidate{
			CourierID: c.ID,
			FullName:  c.FullName,
			City:      c.City,
			Phone:     c.Phone,
			Score:     ScoreCandidate(row, &c),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	return candidates, nil
}

// ScoreCandidate rates how well a courier profile matches a CSV row on a
// 0-100 scale: name contributes up to 50, city and phone tail 25 each.
func ScoreCandidate(row Row, c *domain.Courier) int {
	score := scoreName(row, c.FullName)

	if c.City != "" && strings.EqualFold(strings.TrimSpace(c.City), strings.TrimSpace(row.TargetCity)) {
		score += 25
	}

	phone4 := PhoneLast4(row.Phone)
	if phone4 != "" && PhoneLast4(c.Phone) == phone4 {
		score += 25
	}

	return score
}

func scoreName(row Row, courierName string) int {
	if strings.EqualFold(courierName, row.FullName()) || strings.EqualFold(courierName, row.ReversedName()) {
		return 50
	}

	tokens := nameTokens(row.FullName())
	if len(tokens) == 0 {
		return 0
	}

	lowered := strings.ToLower(courierName)
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			matched++
		}
	}
	return matched * 50 / len(tokens)
}

// nameTokens splits a name into lowercase tokens of at least 3 characters;
// shorter fragments match too easily to be useful.
func nameTokens(name string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		if len([]rune(tok)) >= 3 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func anyTokenMatch(tokens []string, courierName string) bool {
	lowered := strings.ToLower(courierName)
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			return true
		}
	}
	return false
}
