package splittest

import (
	"context"
	"errors"
	"testing"

	"flagsplit/domain"
)

// ---- in-memory fakes ----

type fakeFeatureRepo struct {
	features map[uint]domain.Feature
	states   map[uint][]domain.FeatureState
}

func (f *fakeFeatureRepo) FindMultivariateFeatures(ctx context.Context) ([]domain.Feature, error) {
	var out []domain.Feature
	for _, feature := range f.features {
		if feature.Type == domain.FeatureTypeMultivariate {
			out = append(out, feature)
		}
	}
	return out, nil
}

func (f *fakeFeatureRepo) FindByID(ctx context.Context, id uint) (domain.Feature, error) {
	feature, ok := f.features[id]
	if !ok {
		return domain.Feature{}, errors.New("feature not found")
	}
	return feature, nil
}

func (f *fakeFeatureRepo) FindStatesByFeature(ctx context.Context, featureID uint) ([]domain.FeatureState, error) {
	return f.states[featureID], nil
}

type fakeEnvRepo struct {
	envs map[uint]domain.Environment
}

func (f *fakeEnvRepo) FindByID(ctx context.Context, id uint) (domain.Environment, error) {
	env, ok := f.envs[id]
	if !ok {
		return domain.Environment{}, errors.New("environment not found")
	}
	return env, nil
}

type fakeIdentityRepo struct {
	identities []domain.Identity
}

func (f *fakeIdentityRepo) FindByIdentifiers(ctx context.Context, environmentID uint, identifiers []string) ([]domain.Identity, error) {
	wanted := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		wanted[id] = struct{}{}
	}

	var out []domain.Identity
	for _, identity := range f.identities {
		if identity.EnvironmentID != environmentID {
			continue
		}
		if _, ok := wanted[identity.Identifier]; ok {
			out = append(out, identity)
		}
	}
	return out, nil
}

type fakeEvalRepo struct {
	pairs []domain.EvaluatedPair
}

func (f *fakeEvalRepo) DistinctEvaluatedPairs(ctx context.Context, featureName string, environmentIDs []uint) ([]domain.EvaluatedPair, error) {
	allowed := make(map[uint]struct{}, len(environmentIDs))
	for _, id := range environmentIDs {
		allowed[id] = struct{}{}
	}

	seen := make(map[domain.EvaluatedPair]struct{})
	var out []domain.EvaluatedPair
	for _, pair := range f.pairs {
		if _, ok := allowed[pair.EnvironmentID]; !ok {
			continue
		}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}
	return out, nil
}

type fakeConversionRepo struct {
	converted map[uint]struct{}
}

func (f *fakeConversionRepo) ConvertedIdentityIDs(ctx context.Context, environmentID uint, identityIDs []uint) (map[uint]struct{}, error) {
	out := make(map[uint]struct{})
	for _, id := range identityIDs {
		if _, ok := f.converted[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type fakeSplitTestRepo struct {
	rows   []domain.SplitTest
	nextID uint
}

func (f *fakeSplitTestRepo) FindByFeatureAndEnvironment(ctx context.Context, featureID, environmentID uint) ([]domain.SplitTest, error) {
	var out []domain.SplitTest
	for _, row := range f.rows {
		if row.FeatureID == featureID && row.EnvironmentID == environmentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSplitTestRepo) BulkUpdateCounts(ctx context.Context, rows []domain.SplitTest) error {
	for _, row := range rows {
		found := false
		for i := range f.rows {
			if f.rows[i].ID == row.ID {
				f.rows[i].EvaluationCount = row.EvaluationCount
				f.rows[i].ConversionCount = row.ConversionCount
				f.rows[i].PValue = row.PValue
				f.rows[i].UpdatedAt = row.UpdatedAt
				found = true
				break
			}
		}
		if !found {
			return errors.New("update for unknown row")
		}
	}
	return nil
}

func (f *fakeSplitTestRepo) BulkCreate(ctx context.Context, rows []domain.SplitTest) error {
	for _, row := range rows {
		f.nextID++
		row.ID = f.nextID
		f.rows = append(f.rows, row)
	}
	return nil
}

// ---- fixture ----

func newFixture() (*Service, *fakeSplitTestRepo) {
	featureRepo := &fakeFeatureRepo{
		features: map[uint]domain.Feature{
			1: {
				ID:   1,
				Name: "checkout_button",
				Type: domain.FeatureTypeMultivariate,
				MultivariateOptions: []domain.MultivariateOption{
					{ID: 10, FeatureID: 1, PercentageAllocation: 50},
					{ID: 11, FeatureID: 1, PercentageAllocation: 30},
				},
			},
			2: {ID: 2, Name: "plain_toggle", Type: domain.FeatureTypeStandard},
		},
		states: map[uint][]domain.FeatureState{
			1: {{ID: 100, FeatureID: 1, EnvironmentID: 5}},
		},
	}

	envRepo := &fakeEnvRepo{
		envs: map[uint]domain.Environment{
			5: {ID: 5, Name: "production", APIKey: "env_prod", UseIdentityCompositeKeyForHashing: true},
		},
	}

	identities := make([]domain.Identity, 0, 10)
	pairs := make([]domain.EvaluatedPair, 0, 10)
	for i := 0; i < 10; i++ {
		identifier := string(rune('a'+i)) + "-user"
		identities = append(identities, domain.Identity{
			ID:            uint(i + 1),
			EnvironmentID: 5,
			Identifier:    identifier,
		})
		pairs = append(pairs, domain.EvaluatedPair{
			EnvironmentID:      5,
			IdentityIdentifier: identifier,
		})
	}

	identityRepo := &fakeIdentityRepo{identities: identities}
	evalRepo := &fakeEvalRepo{pairs: pairs}
	conversionRepo := &fakeConversionRepo{
		converted: map[uint]struct{}{2: {}, 5: {}, 8: {}},
	}
	splitTestRepo := &fakeSplitTestRepo{}

	svc := NewService(featureRepo, envRepo, identityRepo, evalRepo, conversionRepo, splitTestRepo, DefaultConfig())
	return svc, splitTestRepo
}

// ---- tests ----

func TestUpdateFeatureSplitTest_CreatesRowPerArm(t *testing.T) {
	svc, repo := newFixture()

	if err := svc.UpdateFeatureSplitTest(context.Background(), 1); err != nil {
		t.Fatalf("UpdateFeatureSplitTest: %v", err)
	}

	// control + 2 variants
	if len(repo.rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(repo.rows), repo.rows)
	}

	controlRows := 0
	totalEvaluations := 0
	totalConversions := 0
	for _, row := range repo.rows {
		if row.MultivariateOptionID == nil {
			controlRows++
		}
		totalEvaluations += row.EvaluationCount
		totalConversions += row.ConversionCount
	}

	if controlRows != 1 {
		t.Fatalf("expected exactly one control row, got %d", controlRows)
	}
	if totalEvaluations != 10 {
		t.Fatalf("evaluations not conserved: got %d, want 10", totalEvaluations)
	}
	if totalConversions != 3 {
		t.Fatalf("conversions not conserved: got %d, want 3", totalConversions)
	}
}

// Pinned per-arm attribution for the fixture: with feature state 100,
// options (10, 50%) and (11, 30%) and the composite hash key
// "env_prod_<identifier>", identities c,e,g,h,i,j land in option 10 and
// a,b,d,f in option 11 (values computed with the reference hash). The
// converted identities are b, e and h, so option 10 carries 2 conversions
// and option 11 carries 1. A mis-attribution that still conserves totals
// (swapped arms, shifted windows) fails here.
func TestUpdateFeatureSplitTest_ExactArmAttribution(t *testing.T) {
	svc, repo := newFixture()

	if err := svc.UpdateFeatureSplitTest(context.Background(), 1); err != nil {
		t.Fatalf("UpdateFeatureSplitTest: %v", err)
	}

	want := map[string]ArmCounts{
		"control":    {Evaluations: 0, Conversions: 0},
		"variant:10": {Evaluations: 6, Conversions: 2},
		"variant:11": {Evaluations: 4, Conversions: 1},
	}

	got := make(map[string]ArmCounts, len(repo.rows))
	for _, row := range repo.rows {
		arm := Control
		if row.MultivariateOptionID != nil {
			arm = VariantArm(*row.MultivariateOptionID)
		}
		got[arm.String()] = ArmCounts{
			Evaluations: row.EvaluationCount,
			Conversions: row.ConversionCount,
		}
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d arms, got %d: %v", len(want), len(got), got)
	}
	for arm, w := range want {
		if got[arm] != w {
			t.Fatalf("arm %s: got %+v, want %+v", arm, got[arm], w)
		}
	}
}

func TestUpdateFeatureSplitTest_SharedPValue(t *testing.T) {
	svc, repo := newFixture()

	if err := svc.UpdateFeatureSplitTest(context.Background(), 1); err != nil {
		t.Fatalf("UpdateFeatureSplitTest: %v", err)
	}

	first := repo.rows[0].PValue
	for _, row := range repo.rows {
		if row.PValue != first {
			t.Fatalf("rows disagree on p-value: %v != %v", row.PValue, first)
		}
		if row.PValue < 0 || row.PValue > 1 {
			t.Fatalf("p-value %v outside [0, 1]", row.PValue)
		}
	}
}

func TestUpdateFeatureSplitTest_Idempotent(t *testing.T) {
	svc, repo := newFixture()

	if err := svc.UpdateFeatureSplitTest(context.Background(), 1); err != nil {
		t.Fatalf("first run: %v", err)
	}

	firstRows := make([]domain.SplitTest, len(repo.rows))
	copy(firstRows, repo.rows)

	if err := svc.UpdateFeatureSplitTest(context.Background(), 1); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(repo.rows) != len(firstRows) {
		t.Fatalf("second run changed row count: %d != %d", len(repo.rows), len(firstRows))
	}

	for i, row := range repo.rows {
		prev := firstRows[i]
		if row.ID != prev.ID {
			t.Fatalf("row identity changed between runs: %d != %d", row.ID, prev.ID)
		}
		if row.EvaluationCount != prev.EvaluationCount || row.ConversionCount != prev.ConversionCount {
			t.Fatalf("counts drifted between identical runs: %+v != %+v", row, prev)
		}
		if row.PValue != prev.PValue {
			t.Fatalf("p-value drifted between identical runs: %v != %v", row.PValue, prev.PValue)
		}
	}
}

func TestUpdateFeatureSplitTest_UnknownFeature(t *testing.T) {
	svc, _ := newFixture()

	if err := svc.UpdateFeatureSplitTest(context.Background(), 99); err == nil {
		t.Fatal("expected error for unknown feature")
	}
}

func TestUpdateFeatureSplitTest_RejectsStandardFeature(t *testing.T) {
	svc, _ := newFixture()

	if err := svc.UpdateFeatureSplitTest(context.Background(), 2); err == nil {
		t.Fatal("expected error for a non-multivariate feature")
	}
}

func TestUpdateFeatureSplitTest_IgnoresUnexposedConversions(t *testing.T) {
	svc, repo := newFixture()

	// An identity with conversions but no evaluation log entry must not
	// contribute to any arm.
	identityRepo, ok := svc.identityRepo.(*fakeIdentityRepo)
	if !ok {
		t.Fatal("fixture identity repo has unexpected type")
	}
	identityRepo.identities = append(identityRepo.identities, domain.Identity{
		ID:            50,
		EnvironmentID: 5,
		Identifier:    "lurker",
	})

	conversionRepo, ok := svc.conversionRepo.(*fakeConversionRepo)
	if !ok {
		t.Fatal("fixture conversion repo has unexpected type")
	}
	conversionRepo.converted[50] = struct{}{}

	if err := svc.UpdateFeatureSplitTest(context.Background(), 1); err != nil {
		t.Fatalf("UpdateFeatureSplitTest: %v", err)
	}

	totalEvaluations := 0
	totalConversions := 0
	for _, row := range repo.rows {
		totalEvaluations += row.EvaluationCount
		totalConversions += row.ConversionCount
	}

	if totalEvaluations != 10 || totalConversions != 3 {
		t.Fatalf("unexposed identity leaked into counts: evals=%d convs=%d", totalEvaluations, totalConversions)
	}
}

func TestRunSplitTestUpdate_SkipsStandardFeatures(t *testing.T) {
	svc, repo := newFixture()

	if err := svc.RunSplitTestUpdate(context.Background()); err != nil {
		t.Fatalf("RunSplitTestUpdate: %v", err)
	}

	for _, row := range repo.rows {
		if row.FeatureID != 1 {
			t.Fatalf("split test row created for non-multivariate feature %d", row.FeatureID)
		}
	}
	if len(repo.rows) != 3 {
		t.Fatalf("expected 3 rows from the multivariate feature, got %d", len(repo.rows))
	}
}

func TestRunSplitTestUpdate_CancelledContext(t *testing.T) {
	svc, _ := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.RunSplitTestUpdate(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
