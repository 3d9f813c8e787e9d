package actions

import (
	"context"
	"sync"
	"time"

	assessmentstore "github.com/dalemusser/stratagrc/internal/app/store/assessments"
	capastore "github.com/dalemusser/stratagrc/internal/app/store/capas"
	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	documentstore "github.com/dalemusser/stratagrc/internal/app/store/documents"
	evidencestore "github.com/dalemusser/stratagrc/internal/app/store/evidence"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	invitationstore "github.com/dalemusser/stratagrc/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/stratagrc/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	riskstore "github.com/dalemusser/stratagrc/internal/app/store/risks"
	soastore "github.com/dalemusser/stratagrc/internal/app/store/soa"
	taskstore "github.com/dalemusser/stratagrc/internal/app/store/tasks"
	trainingstore "github.com/dalemusser/stratagrc/internal/app/store/training"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/system/seeding"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// writes counts store mutations across every fake.
type writes struct{ n int }

func (w *writes) inc() { w.n++ }

type fakeFrameworks struct{ byID map[primitive.ObjectID]models.Framework }

func (f *fakeFrameworks) GetByID(_ context.Context, id primitive.ObjectID) (models.Framework, error) {
	fw, ok := f.byID[id]
	if !ok {
		return models.Framework{}, frameworkstore.ErrNotFound
	}
	return fw, nil
}

type fakeControls struct {
	w    *writes
	rows map[primitive.ObjectID]models.ControlImplementation
}

func (f *fakeControls) Get(_ context.Context, orgID, id primitive.ObjectID) (models.ControlImplementation, error) {
	c, ok := f.rows[id]
	if !ok || c.OrganizationID != orgID {
		return models.ControlImplementation{}, controlstore.ErrNotFound
	}
	return c, nil
}

func (f *fakeControls) Update(ctx context.Context, orgID, id primitive.ObjectID, u controlstore.Update) error {
	c, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	c.Status, c.Effectiveness, c.Notes, c.OwnerID = u.Status, u.Effectiveness, u.Notes, u.OwnerID
	f.rows[id] = c
	return nil
}

type fakeAssessments struct {
	w    *writes
	rows map[primitive.ObjectID]models.Assessment
}

func (f *fakeAssessments) Create(_ context.Context, a models.Assessment) (models.Assessment, error) {
	f.w.inc()
	a.ID = primitive.NewObjectID()
	a.Status = models.AssessmentInProgress
	f.rows[a.ID] = a
	return a, nil
}

func (f *fakeAssessments) Get(_ context.Context, orgID, id primitive.ObjectID) (models.Assessment, error) {
	a, ok := f.rows[id]
	if !ok || a.OrganizationID != orgID {
		return models.Assessment{}, assessmentstore.ErrNotFound
	}
	return a, nil
}

func (f *fakeAssessments) Complete(ctx context.Context, orgID, id primitive.ObjectID, score int) error {
	a, err := f.Get(ctx, orgID, id)
	if err != nil || a.Status != models.AssessmentInProgress {
		return assessmentstore.ErrNotFound
	}
	f.w.inc()
	a.Status = models.AssessmentCompleted
	a.Score = &score
	f.rows[id] = a
	return nil
}

type fakeSoA struct {
	w    *writes
	rows map[primitive.ObjectID]models.SoAEntry
}

func (f *fakeSoA) Get(_ context.Context, orgID, id primitive.ObjectID) (models.SoAEntry, error) {
	e, ok := f.rows[id]
	if !ok || e.OrganizationID != orgID {
		return models.SoAEntry{}, soastore.ErrNotFound
	}
	return e, nil
}

func (f *fakeSoA) Update(ctx context.Context, orgID, id primitive.ObjectID, applicability, justification string) error {
	e, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	e.Applicability, e.Justification = applicability, justification
	f.rows[id] = e
	return nil
}

type fakeScorer struct{ score, undecided int }

func (f fakeScorer) Score(context.Context, primitive.ObjectID, primitive.ObjectID) (int, int, error) {
	return f.score, f.undecided, nil
}

type fakeRisks struct {
	w    *writes
	err  error
	rows map[primitive.ObjectID]models.Risk
}

func (f *fakeRisks) Create(_ context.Context, r models.Risk) (models.Risk, error) {
	if f.err != nil {
		return models.Risk{}, f.err
	}
	f.w.inc()
	r.ID = primitive.NewObjectID()
	f.rows[r.ID] = r
	return r, nil
}

func (f *fakeRisks) Get(_ context.Context, orgID, id primitive.ObjectID) (models.Risk, error) {
	r, ok := f.rows[id]
	if !ok || r.OrganizationID != orgID || r.DeletedAt != nil {
		return models.Risk{}, riskstore.ErrNotFound
	}
	return r, nil
}

func (f *fakeRisks) SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status, treatment string) error {
	r, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	r.Status = status
	if treatment != "" {
		r.Treatment = treatment
	}
	f.rows[id] = r
	return nil
}

func (f *fakeRisks) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	r, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	now := time.Now()
	r.DeletedAt = &now
	f.rows[id] = r
	return nil
}

type fakeTasks struct {
	w    *writes
	rows map[primitive.ObjectID]models.Task
}

func (f *fakeTasks) Create(_ context.Context, t models.Task) (models.Task, error) {
	f.w.inc()
	t.ID = primitive.NewObjectID()
	f.rows[t.ID] = t
	return t, nil
}

func (f *fakeTasks) Get(_ context.Context, orgID, id primitive.ObjectID) (models.Task, error) {
	t, ok := f.rows[id]
	if !ok || t.OrganizationID != orgID || t.DeletedAt != nil {
		return models.Task{}, taskstore.ErrNotFound
	}
	return t, nil
}

func (f *fakeTasks) SetStatus(ctx context.Context, orgID, id primitive.ObjectID, status string) error {
	t, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	t.Status = status
	f.rows[id] = t
	return nil
}

func (f *fakeTasks) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	t, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	now := time.Now()
	t.DeletedAt = &now
	f.rows[id] = t
	return nil
}

type fakeCAPAs struct {
	w    *writes
	rows map[primitive.ObjectID]models.CAPA
}

func (f *fakeCAPAs) Create(_ context.Context, c models.CAPA) (models.CAPA, error) {
	f.w.inc()
	c.ID = primitive.NewObjectID()
	f.rows[c.ID] = c
	return c, nil
}

func (f *fakeCAPAs) Get(_ context.Context, orgID, id primitive.ObjectID) (models.CAPA, error) {
	c, ok := f.rows[id]
	if !ok || c.OrganizationID != orgID || c.DeletedAt != nil {
		return models.CAPA{}, capastore.ErrNotFound
	}
	return c, nil
}

func (f *fakeCAPAs) Transition(ctx context.Context, orgID, id primitive.ObjectID, status, rootCause string) error {
	c, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	c.Status = status
	if rootCause != "" {
		c.RootCause = rootCause
	}
	f.rows[id] = c
	return nil
}

func (f *fakeCAPAs) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	c, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	now := time.Now()
	c.DeletedAt = &now
	f.rows[id] = c
	return nil
}

type fakeDocuments struct {
	w    *writes
	rows map[primitive.ObjectID]models.Document
}

func (f *fakeDocuments) Create(_ context.Context, d models.Document) (models.Document, error) {
	f.w.inc()
	d.ID = primitive.NewObjectID()
	f.rows[d.ID] = d
	return d, nil
}

func (f *fakeDocuments) Get(_ context.Context, orgID, id primitive.ObjectID) (models.Document, error) {
	d, ok := f.rows[id]
	if !ok || d.OrganizationID != orgID || d.DeletedAt != nil {
		return models.Document{}, documentstore.ErrNotFound
	}
	return d, nil
}

func (f *fakeDocuments) ApplyTransition(ctx context.Context, orgID, id primitive.ObjectID, t documentstore.Transition) error {
	d, err := f.Get(ctx, orgID, id)
	if err != nil || d.Status != t.From {
		return documentstore.ErrNotFound
	}
	f.w.inc()
	d.Status, d.Version = t.To, t.Version
	if t.ApprovedAt != nil {
		d.ApprovedBy, d.ApprovedAt = t.ApprovedBy, t.ApprovedAt
	}
	f.rows[id] = d
	return nil
}

func (f *fakeDocuments) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	d, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	now := time.Now()
	d.DeletedAt = &now
	f.rows[id] = d
	return nil
}

type fakeEvidence struct {
	w         *writes
	dupsFirst int
	rows      map[primitive.ObjectID]models.Evidence
}

func (f *fakeEvidence) Create(_ context.Context, e models.Evidence) (models.Evidence, error) {
	if f.dupsFirst > 0 {
		f.dupsFirst--
		return models.Evidence{}, evidencestore.ErrDuplicateReference
	}
	f.w.inc()
	e.ID = primitive.NewObjectID()
	f.rows[e.ID] = e
	return e, nil
}

func (f *fakeEvidence) Get(_ context.Context, orgID, id primitive.ObjectID) (models.Evidence, error) {
	e, ok := f.rows[id]
	if !ok || e.OrganizationID != orgID || e.DeletedAt != nil {
		return models.Evidence{}, evidencestore.ErrNotFound
	}
	return e, nil
}

func (f *fakeEvidence) SoftDelete(ctx context.Context, orgID, id primitive.ObjectID) error {
	e, err := f.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	now := time.Now()
	e.DeletedAt = &now
	f.rows[id] = e
	return nil
}

type fakeTraining struct {
	w           *writes
	programs    map[primitive.ObjectID]models.TrainingProgram
	completions []models.TrainingCompletion
}

func (f *fakeTraining) CreateProgram(_ context.Context, p models.TrainingProgram) (models.TrainingProgram, error) {
	f.w.inc()
	p.ID = primitive.NewObjectID()
	f.programs[p.ID] = p
	return p, nil
}

func (f *fakeTraining) GetProgram(_ context.Context, orgID, id primitive.ObjectID) (models.TrainingProgram, error) {
	p, ok := f.programs[id]
	if !ok || p.OrganizationID != orgID || p.DeletedAt != nil {
		return models.TrainingProgram{}, trainingstore.ErrNotFound
	}
	return p, nil
}

func (f *fakeTraining) SoftDeleteProgram(ctx context.Context, orgID, id primitive.ObjectID) error {
	p, err := f.GetProgram(ctx, orgID, id)
	if err != nil {
		return err
	}
	f.w.inc()
	now := time.Now()
	p.DeletedAt = &now
	f.programs[id] = p
	return nil
}

func (f *fakeTraining) RecordCompletion(_ context.Context, orgID, programID, userID primitive.ObjectID, at time.Time) (models.TrainingCompletion, error) {
	f.w.inc()
	c := models.TrainingCompletion{ID: primitive.NewObjectID(), OrganizationID: orgID, ProgramID: programID, UserID: userID, CompletedAt: at}
	f.completions = append(f.completions, c)
	return c, nil
}

type fakeUsers struct{ rows map[primitive.ObjectID]models.User }

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return models.User{}, userstore.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	want := userstore.NormalizeEmail(email)
	for _, u := range f.rows {
		if userstore.NormalizeEmail(u.Email) == want {
			return u, nil
		}
	}
	return models.User{}, userstore.ErrNotFound
}

type fakeOrgs struct {
	w    *writes
	rows map[primitive.ObjectID]models.Organization
}

func (f *fakeOrgs) Create(_ context.Context, org models.Organization) (models.Organization, error) {
	for _, o := range f.rows {
		if o.Slug == org.Slug {
			return models.Organization{}, organizationstore.ErrDuplicateSlug
		}
	}
	f.w.inc()
	org.ID = primitive.NewObjectID()
	f.rows[org.ID] = org
	return org, nil
}

func (f *fakeOrgs) GetByID(_ context.Context, id primitive.ObjectID) (models.Organization, error) {
	o, ok := f.rows[id]
	if !ok {
		return models.Organization{}, organizationstore.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrgs) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	o, ok := f.rows[id]
	if !ok || o.DeletedAt != nil {
		return organizationstore.ErrNotFound
	}
	f.w.inc()
	now := time.Now()
	o.DeletedAt = &now
	f.rows[id] = o
	return nil
}

func (f *fakeOrgs) Restore(_ context.Context, id primitive.ObjectID) error {
	o, ok := f.rows[id]
	if !ok || o.DeletedAt == nil {
		return organizationstore.ErrNotFound
	}
	f.w.inc()
	o.DeletedAt = nil
	f.rows[id] = o
	return nil
}

func (f *fakeOrgs) UpdateSettings(_ context.Context, id primitive.ObjectID, settings map[string]string) error {
	o, ok := f.rows[id]
	if !ok || o.DeletedAt != nil {
		return organizationstore.ErrNotFound
	}
	f.w.inc()
	o.Settings = settings
	f.rows[id] = o
	return nil
}

type memberKey struct{ user, org primitive.ObjectID }

type fakeMemberships struct {
	w    *writes
	rows map[memberKey]models.Membership

	upsertErr error // returned once by the next Upsert
}

func (f *fakeMemberships) Get(_ context.Context, userID, orgID primitive.ObjectID) (models.Membership, error) {
	m, ok := f.rows[memberKey{userID, orgID}]
	if !ok {
		return models.Membership{}, membershipstore.ErrNotFound
	}
	return m, nil
}

func (f *fakeMemberships) GetActive(ctx context.Context, userID, orgID primitive.ObjectID) (models.Membership, error) {
	m, err := f.Get(ctx, userID, orgID)
	if err != nil || !m.Active {
		return models.Membership{}, membershipstore.ErrNotFound
	}
	return m, nil
}

func (f *fakeMemberships) Upsert(_ context.Context, userID, orgID primitive.ObjectID, role string) (models.Membership, error) {
	if err := f.upsertErr; err != nil {
		f.upsertErr = nil
		return models.Membership{}, err
	}
	f.w.inc()
	k := memberKey{userID, orgID}
	m, ok := f.rows[k]
	if !ok {
		m = models.Membership{ID: primitive.NewObjectID(), UserID: userID, OrganizationID: orgID}
	}
	m.Role, m.Active = role, true
	f.rows[k] = m
	return m, nil
}

func (f *fakeMemberships) ChangeRole(ctx context.Context, userID, orgID primitive.ObjectID, role string) error {
	m, err := f.GetActive(ctx, userID, orgID)
	if err != nil {
		return err
	}
	f.w.inc()
	m.Role = role
	f.rows[memberKey{userID, orgID}] = m
	return nil
}

func (f *fakeMemberships) Deactivate(ctx context.Context, userID, orgID primitive.ObjectID) error {
	m, err := f.GetActive(ctx, userID, orgID)
	if err != nil {
		return err
	}
	f.w.inc()
	m.Active = false
	f.rows[memberKey{userID, orgID}] = m
	return nil
}

func (f *fakeMemberships) CountActive(_ context.Context, orgID primitive.ObjectID, role string) (int64, error) {
	var n int64
	for k, m := range f.rows {
		if k.org == orgID && m.Active && (role == "" || m.Role == role) {
			n++
		}
	}
	return n, nil
}

type fakeInvitations struct {
	w    *writes
	rows map[primitive.ObjectID]models.Invitation
}

func (f *fakeInvitations) Create(_ context.Context, inv models.Invitation) (models.Invitation, error) {
	f.w.inc()
	inv.ID = primitive.NewObjectID()
	inv.Status = models.InvitePending
	f.rows[inv.ID] = inv
	return inv, nil
}

func (f *fakeInvitations) GetByID(_ context.Context, id primitive.ObjectID) (models.Invitation, error) {
	inv, ok := f.rows[id]
	if !ok {
		return models.Invitation{}, invitationstore.ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvitations) MarkAccepted(_ context.Context, id primitive.ObjectID, now time.Time) error {
	inv, ok := f.rows[id]
	if !ok || inv.Status != models.InvitePending || !inv.ExpiresAt.After(now) {
		return invitationstore.ErrNotFound
	}
	f.w.inc()
	inv.Status = models.InviteAccepted
	inv.AcceptedAt = &now
	f.rows[id] = inv
	return nil
}

func (f *fakeInvitations) Revoke(_ context.Context, orgID, id primitive.ObjectID) error {
	inv, ok := f.rows[id]
	if !ok || inv.OrganizationID != orgID || inv.Status != models.InvitePending {
		return invitationstore.ErrNotFound
	}
	f.w.inc()
	inv.Status = models.InviteRevoked
	f.rows[id] = inv
	return nil
}

type fakeSeeder struct {
	calls []string
	err   error
}

func (f *fakeSeeder) SeedControls(context.Context, primitive.ObjectID, primitive.ObjectID) (seeding.Result, error) {
	f.calls = append(f.calls, seeding.KindControls)
	return seeding.Result{Created: 3}, f.err
}

func (f *fakeSeeder) SeedSoA(context.Context, primitive.ObjectID, primitive.ObjectID, string) (seeding.Result, error) {
	f.calls = append(f.calls, seeding.KindSoA)
	return seeding.Result{Created: 3}, f.err
}

func (f *fakeSeeder) SeedCertificationTasks(context.Context, primitive.ObjectID, primitive.ObjectID) (seeding.Result, error) {
	f.calls = append(f.calls, seeding.KindTasks)
	return seeding.Result{Created: 2}, f.err
}

type auditRecord struct {
	eventType string
	orgID     primitive.ObjectID
	entity    string
	diff      map[string]string
	details   map[string]string
}

type fakeAudit struct {
	mu     sync.Mutex
	events []auditRecord
}

func (f *fakeAudit) Data(_ context.Context, eventType string, _ *primitive.ObjectID, orgID primitive.ObjectID, entityType string, _ primitive.ObjectID, diff map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, auditRecord{eventType: eventType, orgID: orgID, entity: entityType, diff: diff})
}

func (f *fakeAudit) Admin(_ context.Context, eventType string, _ *primitive.ObjectID, orgID *primitive.ObjectID, details map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := auditRecord{eventType: eventType, details: details}
	if orgID != nil {
		rec.orgID = *orgID
	}
	f.events = append(f.events, rec)
}

func (f *fakeAudit) last() (auditRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return auditRecord{}, false
	}
	return f.events[len(f.events)-1], true
}

// fakeCache reports invalidations on a channel.
type fakeCache struct{ invalidated chan string }

func (f *fakeCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (f *fakeCache) Set(context.Context, string, []byte) error         { return nil }
func (f *fakeCache) InvalidateOrg(_ context.Context, orgID string) error {
	f.invalidated <- orgID
	return nil
}
