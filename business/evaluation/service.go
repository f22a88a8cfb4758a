package evaluation

import (
	"context"
	"fmt"

	"flagsplit/business/splittest"
	"flagsplit/domain"
	"flagsplit/pkg/logger"

	"gorm.io/datatypes"
)

// ---- Repository interfaces ----

type FeatureRepository interface {
	// FindAll returns every feature with its multivariate options preloaded.
	FindAll(ctx context.Context) ([]domain.Feature, error)
	FindStatesByEnvironment(ctx context.Context, environmentID uint) ([]domain.FeatureState, error)
}

type IdentityRepository interface {
	GetOrCreate(ctx context.Context, environmentID uint, identifier string, traits datatypes.JSONMap) (domain.Identity, error)
}

type EvaluationLogRepository interface {
	BulkAppend(ctx context.Context, rows []domain.FeatureEvaluationRaw) error
}

type ConversionRepository interface {
	SaveEvent(ctx context.Context, event domain.ConversionEvent) error
}

// Flag is one evaluated feature value for an identity in an environment.
type Flag struct {
	FeatureID   uint   `json:"feature_id"`
	FeatureName string `json:"feature_name"`
	Enabled     bool   `json:"enabled"`
	Value       string `json:"value"`
}

// ---- Service ----

// Service is the live flag evaluation path. It buckets identities with the
// same splittest hashing contract the analytics pipeline replays, so a
// variant served here is the variant the pipeline attributes later.
type Service struct {
	featureRepo  FeatureRepository
	identityRepo IdentityRepository
	evalLogRepo  EvaluationLogRepository
	convRepo     ConversionRepository
}

func NewService(
	featureRepo FeatureRepository,
	identityRepo IdentityRepository,
	evalLogRepo EvaluationLogRepository,
	convRepo ConversionRepository,
) *Service {
	return &Service{
		featureRepo:  featureRepo,
		identityRepo: identityRepo,
		evalLogRepo:  evalLogRepo,
		convRepo:     convRepo,
	}
}

// EvaluateFlags resolves every feature configured in the environment for the
// given identifier. An empty identifier is an anonymous evaluation: flags
// resolve to their control values and the raw log rows carry no identifier.
func (s *Service) EvaluateFlags(
	ctx context.Context,
	env domain.Environment,
	identifier string,
	traits datatypes.JSONMap,
) ([]Flag, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	states, err := s.featureRepo.FindStatesByEnvironment(ctx, env.ID)
	if err != nil {
		return nil, fmt.Errorf("load feature states: %w", err)
	}

	features, err := s.featureRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}

	featureByID := make(map[uint]domain.Feature, len(features))
	for _, feature := range features {
		featureByID[feature.ID] = feature
	}

	var hashKey string
	if identifier != "" {
		identity, err := s.identityRepo.GetOrCreate(ctx, env.ID, identifier, traits)
		if err != nil {
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		hashKey = identity.HashKey(env.APIKey, env.UseIdentityCompositeKeyForHashing)
	}

	flags := make([]Flag, 0, len(states))
	logRows := make([]domain.FeatureEvaluationRaw, 0, len(states))

	for _, state := range states {
		feature, ok := featureByID[state.FeatureID]
		if !ok {
			continue
		}

		value := state.Value
		if feature.Type == domain.FeatureTypeMultivariate && hashKey != "" {
			arm := splittest.ResolveArm(state.ID, hashKey, feature.MultivariateOptions)
			if optionID, isVariant := arm.OptionID(); isVariant {
				for _, option := range feature.MultivariateOptions {
					if option.ID == optionID {
						value = option.Value
						break
					}
				}
			}
		}

		flags = append(flags, Flag{
			FeatureID:   feature.ID,
			FeatureName: feature.Name,
			Enabled:     state.Enabled,
			Value:       value,
		})

		row := domain.FeatureEvaluationRaw{
			EnvironmentID:        env.ID,
			FeatureName:          feature.Name,
			EnabledWhenEvaluated: state.Enabled,
		}
		if identifier != "" {
			id := identifier
			row.IdentityIdentifier = &id
		}
		logRows = append(logRows, row)
	}

	// The raw log feeds analytics, not serving; a failed append must not
	// fail the evaluation response.
	if len(logRows) > 0 {
		if err := s.evalLogRepo.BulkAppend(ctx, logRows); err != nil {
			logger.Warn("evaluation_log_append_failed", "environment_id", env.ID, "error", err)
		}
	}

	EvaluationRequestsTotal.WithLabelValues(env.Name).Inc()

	return flags, nil
}

// TrackConversion records a conversion event for an identity. The identity
// is created if unseen; whether the conversion ever counts against an arm is
// decided by the split test pipeline, which drops conversions without a
// prior exposure.
func (s *Service) TrackConversion(
	ctx context.Context,
	env domain.Environment,
	identifier string,
	eventType string,
	metadata datatypes.JSONMap,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if identifier == "" {
		return fmt.Errorf("identifier is required")
	}
	if eventType == "" {
		return fmt.Errorf("event_type is required")
	}

	identity, err := s.identityRepo.GetOrCreate(ctx, env.ID, identifier, nil)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}

	event := domain.ConversionEvent{
		EnvironmentID: env.ID,
		IdentityID:    identity.ID,
		EventType:     eventType,
		Metadata:      metadata,
	}

	if err := s.convRepo.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("save conversion event: %w", err)
	}

	ConversionEventsTotal.WithLabelValues(env.Name, eventType).Inc()

	return nil
}
