package seeding_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	soastore "github.com/dalemusser/stratagrc/internal/app/store/soa"
	taskstore "github.com/dalemusser/stratagrc/internal/app/store/tasks"
	"github.com/dalemusser/stratagrc/internal/app/system/indexes"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/app/system/seeding"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/stratagrc/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newSeeder(db *mongo.Database, m *metrics.Metrics) *seeding.Seeder {
	return seeding.New(
		frameworkstore.New(db),
		controlstore.New(db),
		soastore.New(db),
		taskstore.New(db),
		m,
		zap.NewNop(),
	)
}

func TestSeedControls_SecondRunCreatesNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	m := metrics.New()
	s := newSeeder(db, m)

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	fw, _, _ := fx.CreateFramework(ctx, "ISO27001", 5, 0)

	first, err := s.SeedControls(ctx, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("first SeedControls: %v", err)
	}
	if first.Created != 5 || first.Skipped {
		t.Fatalf("first run: got %+v, want 5 created", first)
	}

	second, err := s.SeedControls(ctx, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("second SeedControls: %v", err)
	}
	if second.Created != 0 || !second.Skipped {
		t.Errorf("second run: got %+v, want skipped with 0 created", second)
	}

	total := fx.Count(ctx, "control_implementations", bson.M{"org_id": org.ID, "framework_id": fw.ID})
	if total != 5 {
		t.Errorf("rows after two runs: got %d, want 5", total)
	}
	unassessed := fx.Count(ctx, "control_implementations", bson.M{
		"org_id":        org.ID,
		"status":        models.ControlNotStarted,
		"effectiveness": models.EffectivenessUnassessed,
	})
	if unassessed != 5 {
		t.Errorf("rows with template defaults: got %d, want 5", unassessed)
	}

	if got := promtest.ToFloat64(m.SeededRowsTotal.WithLabelValues(seeding.KindControls)); got != 5 {
		t.Errorf("seeded rows metric: got %v, want 5", got)
	}
	if got := promtest.ToFloat64(m.SeedRunsTotal.WithLabelValues(seeding.KindControls, "skipped")); got != 1 {
		t.Errorf("skipped runs metric: got %v, want 1", got)
	}
}

func TestSeedControls_FillsOnlyTheGap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	s := newSeeder(db, nil)

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	fw, _, _ := fx.CreateFramework(ctx, "SOC2", 3, 0)
	if _, err := s.SeedControls(ctx, org.ID, fw.ID); err != nil {
		t.Fatalf("SeedControls: %v", err)
	}

	// The catalog grows by one control.
	_, err := fx.DB().Collection("framework_controls").InsertOne(ctx, models.FrameworkControl{
		ID:            primitive.NewObjectID(),
		FrameworkID:   fw.ID,
		Code:          "SOC2-new",
		Title:         "New control",
		DefaultStatus: models.ControlInProgress,
		SortKey:       99,
	})
	if err != nil {
		t.Fatalf("insert control: %v", err)
	}

	res, err := s.SeedControls(ctx, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("SeedControls: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("got %+v, want 1 created", res)
	}
	if n := fx.Count(ctx, "control_implementations", bson.M{"status": models.ControlInProgress}); n != 1 {
		t.Errorf("new row should use the template default status, got %d matches", n)
	}
}

func TestSeedSoA_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	s := newSeeder(db, nil)

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	fx.CreateFramework(ctx, "ISO27001", 4, 0)
	assessmentID := primitive.NewObjectID()

	first, err := s.SeedSoA(ctx, org.ID, assessmentID, "ISO27001")
	if err != nil {
		t.Fatalf("SeedSoA: %v", err)
	}
	if first.Created != 4 {
		t.Fatalf("first run: got %+v, want 4", first)
	}
	second, err := s.SeedSoA(ctx, org.ID, assessmentID, "ISO27001")
	if err != nil {
		t.Fatalf("SeedSoA: %v", err)
	}
	if !second.Skipped {
		t.Errorf("second run: got %+v, want skipped", second)
	}
	if n := fx.Count(ctx, "soa_entries", bson.M{"assessment_id": assessmentID, "applicability": models.SoAUndecided}); n != 4 {
		t.Errorf("undecided entries: got %d, want 4", n)
	}

	if _, err := s.SeedSoA(ctx, org.ID, assessmentID, "NOPE"); err == nil {
		t.Error("unknown framework code should fail")
	}
}

func TestSeedCertificationTasks_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	s := newSeeder(db, nil)

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	fw, _, templates := fx.CreateFramework(ctx, "ISO27001", 0, 3)

	first, err := s.SeedCertificationTasks(ctx, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("SeedCertificationTasks: %v", err)
	}
	if first.Created != len(templates) {
		t.Fatalf("first run: got %+v, want %d", first, len(templates))
	}
	second, err := s.SeedCertificationTasks(ctx, org.ID, fw.ID)
	if err != nil {
		t.Fatalf("SeedCertificationTasks: %v", err)
	}
	if second.Created != 0 || !second.Skipped {
		t.Errorf("second run: got %+v", second)
	}
	if n := fx.Count(ctx, "tasks", bson.M{"org_id": org.ID, "status": models.TaskTodo}); n != 3 {
		t.Errorf("todo tasks: got %d, want 3", n)
	}
}

// seedConcurrently runs seed from n goroutines at once and returns the
// summed Created count.
func seedConcurrently(t *testing.T, n int, seed func() (seeding.Result, error)) int {
	t.Helper()
	var (
		wg      sync.WaitGroup
		results = make([]seeding.Result, n)
		errs    = make([]error, n)
		start   = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = seed()
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		created += results[i].Created
	}
	return created
}

func TestSeeding_ConcurrentCallsInsertOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	s := newSeeder(db, metrics.New())

	org := fx.CreateOrganization(ctx, "acme", "Acme")
	fw, controls, templates := fx.CreateFramework(ctx, "ISO27001", 12, 6)
	const workers = 8

	created := seedConcurrently(t, workers, func() (seeding.Result, error) {
		return s.SeedControls(ctx, org.ID, fw.ID)
	})
	if created != len(controls) {
		t.Errorf("controls: summed Created = %d, want %d", created, len(controls))
	}
	if n := fx.Count(ctx, "control_implementations", bson.M{"org_id": org.ID, "framework_id": fw.ID}); n != int64(len(controls)) {
		t.Errorf("control rows = %d, want %d", n, len(controls))
	}

	created = seedConcurrently(t, workers, func() (seeding.Result, error) {
		return s.SeedCertificationTasks(ctx, org.ID, fw.ID)
	})
	if created != len(templates) {
		t.Errorf("tasks: summed Created = %d, want %d", created, len(templates))
	}
	if n := fx.Count(ctx, "tasks", bson.M{"org_id": org.ID}); n != int64(len(templates)) {
		t.Errorf("task rows = %d, want %d", n, len(templates))
	}
}

// Fakes for the failure path.

type fakeTemplates struct {
	controls []models.FrameworkControl
}

func (f fakeTemplates) GetByCode(context.Context, string) (models.Framework, error) {
	return models.Framework{ID: primitive.NewObjectID()}, nil
}
func (f fakeTemplates) Controls(context.Context, primitive.ObjectID) ([]models.FrameworkControl, error) {
	return f.controls, nil
}
func (f fakeTemplates) TaskTemplates(context.Context, primitive.ObjectID) ([]models.TaskTemplate, error) {
	return nil, nil
}

type failingControls struct{ err error }

func (f failingControls) ExistingControlIDs(context.Context, primitive.ObjectID, primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	return map[primitive.ObjectID]bool{}, nil
}
func (f failingControls) InsertMissing(context.Context, []models.ControlImplementation) (int, error) {
	return 0, f.err
}

func TestSeedControls_PropagatesInsertError(t *testing.T) {
	boom := errors.New("disk full")
	m := metrics.New()
	s := seeding.New(
		fakeTemplates{controls: []models.FrameworkControl{{ID: primitive.NewObjectID()}}},
		failingControls{err: boom},
		nil, nil, m, zap.NewNop(),
	)

	_, err := s.SeedControls(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped %v", err, boom)
	}
	if got := promtest.ToFloat64(m.SeedRunsTotal.WithLabelValues(seeding.KindControls, "error")); got != 1 {
		t.Errorf("error runs metric: got %v, want 1", got)
	}
}
