package splittest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flagsplit/domain"
	"flagsplit/pkg/logger"
)

// ---- Repository interfaces ----

type FeatureRepository interface {
	// FindMultivariateFeatures returns every feature of type multivariate.
	FindMultivariateFeatures(ctx context.Context) ([]domain.Feature, error)
	// FindByID returns the feature with its multivariate options preloaded.
	FindByID(ctx context.Context, id uint) (domain.Feature, error)
	FindStatesByFeature(ctx context.Context, featureID uint) ([]domain.FeatureState, error)
}

type EnvironmentRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Environment, error)
}

type IdentityRepository interface {
	FindByIdentifiers(ctx context.Context, environmentID uint, identifiers []string) ([]domain.Identity, error)
}

type EvaluationRepository interface {
	// DistinctEvaluatedPairs reduces the raw evaluation log for a feature to
	// the distinct (environment, identifier) pairs, excluding anonymous rows.
	DistinctEvaluatedPairs(ctx context.Context, featureName string, environmentIDs []uint) ([]domain.EvaluatedPair, error)
}

type ConversionRepository interface {
	// ConvertedIdentityIDs returns the subset of identityIDs with at least
	// one conversion event in the environment.
	ConvertedIdentityIDs(ctx context.Context, environmentID uint, identityIDs []uint) (map[uint]struct{}, error)
}

type SplitTestRepository interface {
	FindByFeatureAndEnvironment(ctx context.Context, featureID, environmentID uint) ([]domain.SplitTest, error)
	// BulkUpdateCounts rewrites evaluation_count, conversion_count, pvalue
	// and updated_at for existing rows in one statement batch.
	BulkUpdateCounts(ctx context.Context, rows []domain.SplitTest) error
	BulkCreate(ctx context.Context, rows []domain.SplitTest) error
}

// ---- Config ----

type Config struct {
	// Workers bounds the fan-out concurrency of RunSplitTestUpdate.
	Workers int
	// FeatureBudget caps the wall clock of one feature's unit of work; a
	// feature that blows the budget is abandoned and recomputed next run.
	FeatureBudget time.Duration
}

const (
	defaultWorkers       = 4
	defaultFeatureBudget = 5 * time.Minute
)

func DefaultConfig() Config {
	return Config{
		Workers:       defaultWorkers,
		FeatureBudget: defaultFeatureBudget,
	}
}

// ---- Service ----

type Service struct {
	featureRepo    FeatureRepository
	envRepo        EnvironmentRepository
	identityRepo   IdentityRepository
	evalRepo       EvaluationRepository
	conversionRepo ConversionRepository
	splitTestRepo  SplitTestRepository
	cfg            Config
}

func NewService(
	featureRepo FeatureRepository,
	envRepo EnvironmentRepository,
	identityRepo IdentityRepository,
	evalRepo EvaluationRepository,
	conversionRepo ConversionRepository,
	splitTestRepo SplitTestRepository,
	cfg Config,
) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.FeatureBudget <= 0 {
		cfg.FeatureBudget = defaultFeatureBudget
	}
	return &Service{
		featureRepo:    featureRepo,
		envRepo:        envRepo,
		identityRepo:   identityRepo,
		evalRepo:       evalRepo,
		conversionRepo: conversionRepo,
		splitTestRepo:  splitTestRepo,
		cfg:            cfg,
	}
}

// RunSplitTestUpdate recomputes split test results for every multivariate
// feature, fanning the per-feature units of work across a bounded worker
// pool. Units are independent: a failed feature is logged and counted but
// never aborts its siblings.
func (s *Service) RunSplitTestUpdate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	features, err := s.featureRepo.FindMultivariateFeatures(ctx)
	if err != nil {
		return fmt.Errorf("list multivariate features: %w", err)
	}

	jobs := make(chan domain.Feature)
	var wg sync.WaitGroup

	for range s.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for feature := range jobs {
				s.runFeatureUpdate(ctx, feature.ID)
			}
		}()
	}

	for _, feature := range features {
		jobs <- feature
	}
	close(jobs)
	wg.Wait()

	SplitTestRunsTotal.Inc()
	logger.Info("split_test_run_complete", "features", len(features))

	return nil
}

func (s *Service) runFeatureUpdate(ctx context.Context, featureID uint) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FeatureBudget)
	defer cancel()

	start := time.Now()
	err := s.UpdateFeatureSplitTest(fctx, featureID)
	SplitTestUpdateDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error("split_test_update_failed", "feature_id", featureID, "error", err)
		SplitTestFeatureUpdatesTotal.WithLabelValues("error").Inc()
		return
	}

	SplitTestFeatureUpdatesTotal.WithLabelValues("ok").Inc()
}

// UpdateFeatureSplitTest is one unit of work: recompute and persist per-arm
// results for every environment the feature is configured in. A featureID
// that does not resolve to a multivariate feature is a fatal error for this
// unit.
func (s *Service) UpdateFeatureSplitTest(ctx context.Context, featureID uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	feature, err := s.featureRepo.FindByID(ctx, featureID)
	if err != nil {
		return fmt.Errorf("load feature %d: %w", featureID, err)
	}
	if feature.Type != domain.FeatureTypeMultivariate {
		return fmt.Errorf("feature %d is not multivariate", featureID)
	}

	states, err := s.featureRepo.FindStatesByFeature(ctx, feature.ID)
	if err != nil {
		return fmt.Errorf("load feature states: %w", err)
	}

	stateByEnv := make(map[uint]domain.FeatureState, len(states))
	environmentIDs := make([]uint, 0, len(states))
	for _, state := range states {
		stateByEnv[state.EnvironmentID] = state
		environmentIDs = append(environmentIDs, state.EnvironmentID)
	}

	pairs, err := s.evalRepo.DistinctEvaluatedPairs(ctx, feature.Name, environmentIDs)
	if err != nil {
		return fmt.Errorf("load evaluated pairs: %w", err)
	}

	for environmentID, identifiers := range groupByEnvironment(pairs) {
		state, ok := stateByEnv[environmentID]
		if !ok {
			// Evaluations can outlive a removed feature state; nothing to
			// attribute them against.
			continue
		}

		if err := s.updateEnvironmentSplitTest(ctx, feature, state, identifiers); err != nil {
			return fmt.Errorf("environment %d: %w", environmentID, err)
		}
	}

	return nil
}

// groupByEnvironment reduces distinct pairs to a per-environment identifier
// list. Pairs are already deduplicated by the repository query.
func groupByEnvironment(pairs []domain.EvaluatedPair) map[uint][]string {
	byEnv := make(map[uint][]string)
	for _, pair := range pairs {
		byEnv[pair.EnvironmentID] = append(byEnv[pair.EnvironmentID], pair.IdentityIdentifier)
	}
	return byEnv
}

func (s *Service) updateEnvironmentSplitTest(
	ctx context.Context,
	feature domain.Feature,
	state domain.FeatureState,
	identifiers []string,
) error {
	env, err := s.envRepo.FindByID(ctx, state.EnvironmentID)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	identities, err := s.identityRepo.FindByIdentifiers(ctx, env.ID, identifiers)
	if err != nil {
		return fmt.Errorf("load identities: %w", err)
	}

	identityIDs := make([]uint, 0, len(identities))
	for _, identity := range identities {
		identityIDs = append(identityIDs, identity.ID)
	}

	// Only identities that observed the feature are in scope: a conversion
	// by someone never exposed is out of scope, not an error.
	converted, err := s.conversionRepo.ConvertedIdentityIDs(ctx, env.ID, identityIDs)
	if err != nil {
		return fmt.Errorf("load conversions: %w", err)
	}

	exposures := make([]Exposure, 0, len(identities))
	for _, identity := range identities {
		_, didConvert := converted[identity.ID]
		exposures = append(exposures, Exposure{
			HashKey:   identity.HashKey(env.APIKey, env.UseIdentityCompositeKeyForHashing),
			Converted: didConvert,
		})
	}

	counts := Aggregate(state.ID, feature.MultivariateOptions, exposures)
	pvalue := Significance(counts)

	logger.Debug("split_test_environment",
		"feature_id", feature.ID,
		"environment_id", env.ID,
		"exposed", len(exposures),
		"converted", len(converted),
		"pvalue", pvalue,
	)

	return s.reconcile(ctx, feature.ID, env.ID, counts, pvalue)
}

// reconcile merges computed counts into the persisted rows: existing rows
// are updated in place, missing arms get new rows, nothing is deleted.
// Overlapping runs for the same feature+environment resolve last-writer-wins;
// since every run recomputes from scratch, a lost update is repaired by the
// next scheduled run.
func (s *Service) reconcile(
	ctx context.Context,
	featureID uint,
	environmentID uint,
	counts AggregateCounts,
	pvalue float64,
) error {
	existing, err := s.splitTestRepo.FindByFeatureAndEnvironment(ctx, featureID, environmentID)
	if err != nil {
		return fmt.Errorf("load existing split tests: %w", err)
	}

	existingByArm := make(map[Arm]domain.SplitTest, len(existing))
	for _, row := range existing {
		arm := Control
		if row.MultivariateOptionID != nil {
			arm = VariantArm(*row.MultivariateOptionID)
		}
		existingByArm[arm] = row
	}

	now := time.Now()

	var updates []domain.SplitTest
	var inserts []domain.SplitTest

	for arm, c := range counts {
		var optionID *uint
		if id, ok := arm.OptionID(); ok {
			optionID = &id
		}

		if row, ok := existingByArm[arm]; ok {
			row.EvaluationCount = c.Evaluations
			row.ConversionCount = c.Conversions
			row.PValue = pvalue
			row.UpdatedAt = now

			updates = append(updates, row)
			continue
		}

		inserts = append(inserts, domain.SplitTest{
			FeatureID:            featureID,
			EnvironmentID:        environmentID,
			MultivariateOptionID: optionID,
			EvaluationCount:      c.Evaluations,
			ConversionCount:      c.Conversions,
			PValue:               pvalue,
			UpdatedAt:            now,
		})
	}

	if len(updates) > 0 {
		if err := s.splitTestRepo.BulkUpdateCounts(ctx, updates); err != nil {
			return fmt.Errorf("bulk update split tests: %w", err)
		}
	}
	if len(inserts) > 0 {
		if err := s.splitTestRepo.BulkCreate(ctx, inserts); err != nil {
			return fmt.Errorf("bulk create split tests: %w", err)
		}
	}

	return nil
}
