// internal/app/system/seeding/seeding.go
//
// Package seeding materializes framework templates into per-organization
// rows: control implementations, Statement of Applicability entries and
// certification tasks. Every routine inserts only the rows that are missing
// and relies on a unique index so that concurrent runs cannot double-insert.
package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Seed kinds, used as metric labels and log fields.
const (
	KindControls = "controls"
	KindSoA      = "soa"
	KindTasks    = "tasks"
)

// Result reports what one seeding call did. Skipped is true when every
// template item was already materialized.
type Result struct {
	Created int
	Skipped bool
}

// Templates reads the global framework catalog.
type Templates interface {
	GetByCode(ctx context.Context, code string) (models.Framework, error)
	Controls(ctx context.Context, frameworkID primitive.ObjectID) ([]models.FrameworkControl, error)
	TaskTemplates(ctx context.Context, frameworkID primitive.ObjectID) ([]models.TaskTemplate, error)
}

// ControlRows is the control_implementations side of control seeding.
type ControlRows interface {
	ExistingControlIDs(ctx context.Context, orgID, frameworkID primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	InsertMissing(ctx context.Context, rows []models.ControlImplementation) (int, error)
}

// SoARows is the soa_entries side of SoA seeding.
type SoARows interface {
	ExistingControlIDs(ctx context.Context, assessmentID primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	InsertMissing(ctx context.Context, rows []models.SoAEntry) (int, error)
}

// TaskRows is the tasks side of certification task seeding.
type TaskRows interface {
	ExistingTemplateIDs(ctx context.Context, orgID, frameworkID primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	InsertMissing(ctx context.Context, rows []models.Task) (int, error)
}

// Seeder runs the seeding routines.
type Seeder struct {
	templates Templates
	controls  ControlRows
	soa       SoARows
	tasks     TaskRows
	metrics   *metrics.Metrics
	log       *zap.Logger

	now func() time.Time
}

// New constructs a Seeder. m may be nil.
func New(templates Templates, controls ControlRows, soa SoARows, tasks TaskRows, m *metrics.Metrics, logger *zap.Logger) *Seeder {
	return &Seeder{
		templates: templates,
		controls:  controls,
		soa:       soa,
		tasks:     tasks,
		metrics:   m,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SeedControls creates a control implementation for every template control
// of frameworkID that orgID does not have yet. New rows start at the
// template's default status and an unassessed effectiveness.
func (s *Seeder) SeedControls(ctx context.Context, orgID, frameworkID primitive.ObjectID) (Result, error) {
	controls, err := s.templates.Controls(ctx, frameworkID)
	if err != nil {
		return s.fail(KindControls, fmt.Errorf("load template controls: %w", err))
	}
	existing, err := s.controls.ExistingControlIDs(ctx, orgID, frameworkID)
	if err != nil {
		return s.fail(KindControls, fmt.Errorf("load existing implementations: %w", err))
	}

	now := s.now()
	var missing []models.ControlImplementation
	for _, c := range controls {
		if existing[c.ID] {
			continue
		}
		status := c.DefaultStatus
		if status == "" {
			status = models.ControlNotStarted
		}
		missing = append(missing, models.ControlImplementation{
			ID:             primitive.NewObjectID(),
			OrganizationID: orgID,
			FrameworkID:    frameworkID,
			ControlID:      c.ID,
			Status:         status,
			Effectiveness:  models.EffectivenessUnassessed,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if len(missing) == 0 {
		return s.skip(KindControls, orgID)
	}

	created, err := s.controls.InsertMissing(ctx, missing)
	if err != nil {
		return s.fail(KindControls, fmt.Errorf("insert control implementations: %w", err))
	}
	return s.done(KindControls, orgID, created)
}

// SeedSoA creates an undecided SoA entry for every control of the framework
// named by frameworkCode that the assessment does not cover yet.
func (s *Seeder) SeedSoA(ctx context.Context, orgID, assessmentID primitive.ObjectID, frameworkCode string) (Result, error) {
	fw, err := s.templates.GetByCode(ctx, frameworkCode)
	if err != nil {
		return s.fail(KindSoA, fmt.Errorf("load framework %q: %w", frameworkCode, err))
	}
	controls, err := s.templates.Controls(ctx, fw.ID)
	if err != nil {
		return s.fail(KindSoA, fmt.Errorf("load template controls: %w", err))
	}
	existing, err := s.soa.ExistingControlIDs(ctx, assessmentID)
	if err != nil {
		return s.fail(KindSoA, fmt.Errorf("load existing soa entries: %w", err))
	}

	now := s.now()
	var missing []models.SoAEntry
	for _, c := range controls {
		if existing[c.ID] {
			continue
		}
		missing = append(missing, models.SoAEntry{
			ID:             primitive.NewObjectID(),
			OrganizationID: orgID,
			AssessmentID:   assessmentID,
			ControlID:      c.ID,
			Applicability:  models.SoAUndecided,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if len(missing) == 0 {
		return s.skip(KindSoA, orgID)
	}

	created, err := s.soa.InsertMissing(ctx, missing)
	if err != nil {
		return s.fail(KindSoA, fmt.Errorf("insert soa entries: %w", err))
	}
	return s.done(KindSoA, orgID, created)
}

// SeedCertificationTasks creates a todo task for every task template of
// frameworkID that orgID does not have yet. Due dates are offset from now.
func (s *Seeder) SeedCertificationTasks(ctx context.Context, orgID, frameworkID primitive.ObjectID) (Result, error) {
	templates, err := s.templates.TaskTemplates(ctx, frameworkID)
	if err != nil {
		return s.fail(KindTasks, fmt.Errorf("load task templates: %w", err))
	}
	existing, err := s.tasks.ExistingTemplateIDs(ctx, orgID, frameworkID)
	if err != nil {
		return s.fail(KindTasks, fmt.Errorf("load existing tasks: %w", err))
	}

	now := s.now()
	var missing []models.Task
	for _, tpl := range templates {
		if existing[tpl.ID] {
			continue
		}
		fwID, tplID := frameworkID, tpl.ID
		task := models.Task{
			ID:             primitive.NewObjectID(),
			OrganizationID: orgID,
			FrameworkID:    &fwID,
			TemplateID:     &tplID,
			Title:          tpl.Title,
			Description:    tpl.Description,
			Status:         models.TaskTodo,
			Priority:       models.PriorityMedium,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if tpl.DueOffset > 0 {
			due := now.AddDate(0, 0, tpl.DueOffset)
			task.DueDate = &due
		}
		missing = append(missing, task)
	}
	if len(missing) == 0 {
		return s.skip(KindTasks, orgID)
	}

	created, err := s.tasks.InsertMissing(ctx, missing)
	if err != nil {
		return s.fail(KindTasks, fmt.Errorf("insert certification tasks: %w", err))
	}
	return s.done(KindTasks, orgID, created)
}

func (s *Seeder) skip(kind string, orgID primitive.ObjectID) (Result, error) {
	s.metrics.Seed(kind, "skipped", 0)
	s.log.Debug("seeding skipped; nothing missing",
		zap.String("kind", kind), zap.String("org_id", orgID.Hex()))
	return Result{Skipped: true}, nil
}

func (s *Seeder) done(kind string, orgID primitive.ObjectID, created int) (Result, error) {
	s.metrics.Seed(kind, "created", created)
	s.log.Info("seeded rows",
		zap.String("kind", kind),
		zap.String("org_id", orgID.Hex()),
		zap.Int("created", created))
	// Another writer may have inserted every missing row between our read
	// and our insert.
	return Result{Created: created, Skipped: created == 0}, nil
}

func (s *Seeder) fail(kind string, err error) (Result, error) {
	s.metrics.Seed(kind, "error", 0)
	return Result{}, err
}
