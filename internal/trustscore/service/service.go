// Package service gathers trust-score evidence concurrently and scores it.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"civic/internal/trustscore"
	"civic/internal/trustscore/metrics"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
)

const gatherTimeout = 3 * time.Second

var tracer = otel.Tracer("civic/trustscore")

// Evidence reads the three score inputs. Implementations are read-only.
type Evidence interface {
	VoteSummary(ctx context.Context, politicianID id.PoliticianID) (trustscore.VoteSummary, error)
	LatestFinance(ctx context.Context, politicianID id.PoliticianID) (*float64, error)
	LatestTruth(ctx context.Context, politicianID id.PoliticianID) (*float64, error)
}

// Result is a computed score with the inputs that produced it.
type Result struct {
	PoliticianID id.PoliticianID   `json:"politicianId"`
	Score        int               `json:"score"`
	Inputs       trustscore.Inputs `json:"inputs"`
}

type Service struct {
	evidence Evidence
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(evidence Evidence, opts ...Option) *Service {
	s := &Service{evidence: evidence, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeTrustScore reads the inputs for politicianID in parallel and
// returns the score. The first failing source cancels the others.
func (s *Service) ComputeTrustScore(ctx context.Context, politicianID id.PoliticianID) (*Result, error) {
	ctx, span := tracer.Start(ctx, "trustscore.Compute")
	defer span.End()
	span.SetAttributes(attribute.String("politician.id", politicianID.String()))

	inputs, err := s.gather(ctx, politicianID)
	if err != nil {
		s.metrics.IncError()
		span.RecordError(err)
		span.SetStatus(codes.Error, "evidence gathering failed")
		s.logger.ErrorContext(ctx, "trust score evidence failed",
			"politician_id", politicianID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to load trust score inputs")
	}

	score := trustscore.Compute(inputs)
	s.metrics.ObserveScore(score)
	span.SetAttributes(attribute.Int("trustscore.value", score))
	return &Result{PoliticianID: politicianID, Score: score, Inputs: inputs}, nil
}

func (s *Service) gather(ctx context.Context, politicianID id.PoliticianID) (trustscore.Inputs, error) {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	var in trustscore.Inputs

	g.Go(func() error {
		start := time.Now()
		votes, err := s.evidence.VoteSummary(ctx, politicianID)
		s.metrics.ObserveSource("votes", time.Since(start))
		if err != nil {
			return err
		}
		in.Votes = votes
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		finance, err := s.evidence.LatestFinance(ctx, politicianID)
		s.metrics.ObserveSource("campaign_finance", time.Since(start))
		if err != nil {
			return err
		}
		in.CampaignFinance = finance
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		truth, err := s.evidence.LatestTruth(ctx, politicianID)
		s.metrics.ObserveSource("truth_tracking", time.Since(start))
		if err != nil {
			return err
		}
		in.TruthScore = truth
		return nil
	})

	if err := g.Wait(); err != nil {
		return trustscore.Inputs{}, err
	}
	return in, nil
}
