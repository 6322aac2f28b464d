package store

import (
	"context"
	"sync"
	"time"

	"civic/internal/trustscore"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
)

// Decision is a roll-call vote outcome.
type Decision string

const (
	DecisionYes     Decision = "yes"
	DecisionNo      Decision = "no"
	DecisionAbstain Decision = "abstain"
	DecisionPaired  Decision = "paired"
)

type timedValue struct {
	value float64
	at    time.Time
}

// InMemory holds evidence in process for development and tests. The
// Record* methods stand in for the ingestion jobs.
type InMemory struct {
	mu      sync.RWMutex
	votes   map[id.PoliticianID][]Decision
	finance map[id.PoliticianID]timedValue
	truth   map[id.PoliticianID]timedValue
}

func NewInMemory() *InMemory {
	return &InMemory{
		votes:   make(map[id.PoliticianID][]Decision),
		finance: make(map[id.PoliticianID]timedValue),
		truth:   make(map[id.PoliticianID]timedValue),
	}
}

func (s *InMemory) RecordVote(politicianID id.PoliticianID, d Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[politicianID] = append(s.votes[politicianID], d)
}

// RecordFinance keeps the report with the latest reportedAt.
func (s *InMemory) RecordFinance(politicianID id.PoliticianID, amount float64, reportedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.finance[politicianID]; !ok || reportedAt.After(cur.at) {
		s.finance[politicianID] = timedValue{value: amount, at: reportedAt}
	}
}

// RecordTruth keeps the score with the latest recordedAt.
func (s *InMemory) RecordTruth(politicianID id.PoliticianID, score float64, recordedAt time.Time) error {
	if !trustscore.ValidTruthScore(score) {
		return dErrors.New(dErrors.CodeValidation, "truth score must be between 0 and 5")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.truth[politicianID]; !ok || recordedAt.After(cur.at) {
		s.truth[politicianID] = timedValue{value: score, at: recordedAt}
	}
	return nil
}

func (s *InMemory) VoteSummary(_ context.Context, politicianID id.PoliticianID) (trustscore.VoteSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var vs trustscore.VoteSummary
	for _, d := range s.votes[politicianID] {
		vs.Total++
		if d == DecisionAbstain || d == DecisionPaired {
			vs.AbstainOrPaired++
		}
	}
	return vs, nil
}

func (s *InMemory) LatestFinance(_ context.Context, politicianID id.PoliticianID) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.finance[politicianID]; ok {
		out := v.value
		return &out, nil
	}
	return nil, nil
}

func (s *InMemory) LatestTruth(_ context.Context, politicianID id.PoliticianID) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.truth[politicianID]; ok {
		out := v.value
		return &out, nil
	}
	return nil, nil
}
