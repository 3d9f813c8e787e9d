// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's index set is reconciled
idempotently. Errors are aggregated so every problem is visible and startup
can fail fast.

The unique indexes here carry application invariants: one membership per
(user, org), one control implementation per (org, framework, control), one
SoA row per (assessment, control), one seeded task per (org, template).
Seeding depends on them for idempotency under concurrent calls.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, set := range indexSets() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func indexSets() []collectionIndexes {
	orgTime := func(name string) mongo.IndexModel {
		return idx(name, bson.D{{Key: "org_id", Value: 1}, {Key: "deleted_at", Value: 1}, {Key: "created_at", Value: -1}})
	}

	return []collectionIndexes{
		{"users", []mongo.IndexModel{
			uniq("uniq_users_email_ci", bson.D{{Key: "email_ci", Value: 1}}),
			idx("idx_users_fullnameci_id", bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}),
		}},
		{"organizations", []mongo.IndexModel{
			uniq("uniq_orgs_slug", bson.D{{Key: "slug", Value: 1}}),
			idx("idx_orgs_deleted_nameci", bson.D{{Key: "deleted_at", Value: 1}, {Key: "name_ci", Value: 1}}),
		}},
		{"memberships", []mongo.IndexModel{
			uniq("uniq_memberships_user_org", bson.D{{Key: "user_id", Value: 1}, {Key: "org_id", Value: 1}}),
			// Augmentation: a user's active memberships, newest first.
			idx("idx_memberships_user_active_updated", bson.D{{Key: "user_id", Value: 1}, {Key: "active", Value: 1}, {Key: "updated_at", Value: -1}}),
			idx("idx_memberships_org_active_role", bson.D{{Key: "org_id", Value: 1}, {Key: "active", Value: 1}, {Key: "role", Value: 1}}),
		}},
		{"frameworks", []mongo.IndexModel{
			uniq("uniq_frameworks_code", bson.D{{Key: "code", Value: 1}}),
		}},
		{"framework_controls", []mongo.IndexModel{
			uniq("uniq_fwcontrols_fw_code", bson.D{{Key: "framework_id", Value: 1}, {Key: "code", Value: 1}}),
			idx("idx_fwcontrols_fw_sort", bson.D{{Key: "framework_id", Value: 1}, {Key: "sort_key", Value: 1}}),
		}},
		{"task_templates", []mongo.IndexModel{
			uniq("uniq_tasktemplates_fw_key", bson.D{{Key: "framework_id", Value: 1}, {Key: "key", Value: 1}}),
		}},
		{"control_implementations", []mongo.IndexModel{
			uniq("uniq_controlimpl_org_fw_control", bson.D{{Key: "org_id", Value: 1}, {Key: "framework_id", Value: 1}, {Key: "control_id", Value: 1}}),
			idx("idx_controlimpl_org_status", bson.D{{Key: "org_id", Value: 1}, {Key: "status", Value: 1}}),
		}},
		{"soa_entries", []mongo.IndexModel{
			uniq("uniq_soa_assessment_control", bson.D{{Key: "assessment_id", Value: 1}, {Key: "control_id", Value: 1}}),
		}},
		{"assessments", []mongo.IndexModel{orgTime("idx_assessments_org_deleted_created")}},
		{"tasks", []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "template_id", Value: 1}},
				Options: options.Index().
					SetName("uniq_tasks_org_template").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"template_id": bson.M{"$exists": true}}),
			},
			idx("idx_tasks_org_deleted_status_due", bson.D{{Key: "org_id", Value: 1}, {Key: "deleted_at", Value: 1}, {Key: "status", Value: 1}, {Key: "due_date", Value: 1}}),
		}},
		{"risks", []mongo.IndexModel{
			idx("idx_risks_org_deleted_score", bson.D{{Key: "org_id", Value: 1}, {Key: "deleted_at", Value: 1}, {Key: "score", Value: -1}}),
		}},
		{"capas", []mongo.IndexModel{orgTime("idx_capas_org_deleted_created")}},
		{"documents", []mongo.IndexModel{
			idx("idx_documents_org_deleted_title", bson.D{{Key: "org_id", Value: 1}, {Key: "deleted_at", Value: 1}, {Key: "title", Value: 1}}),
		}},
		{"evidence", []mongo.IndexModel{
			uniq("uniq_evidence_org_reference", bson.D{{Key: "org_id", Value: 1}, {Key: "reference", Value: 1}}),
			idx("idx_evidence_org_impl", bson.D{{Key: "org_id", Value: 1}, {Key: "implementation_id", Value: 1}}),
		}},
		{"training_programs", []mongo.IndexModel{orgTime("idx_trainingprograms_org_deleted_created")}},
		{"training_completions", []mongo.IndexModel{
			uniq("uniq_trainingcompletions_program_user", bson.D{{Key: "program_id", Value: 1}, {Key: "user_id", Value: 1}}),
			idx("idx_trainingcompletions_org", bson.D{{Key: "org_id", Value: 1}}),
		}},
		{"invitations", []mongo.IndexModel{
			idx("idx_invitations_org_status", bson.D{{Key: "org_id", Value: 1}, {Key: "status", Value: 1}}),
			idx("idx_invitations_status_expires", bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}),
		}},
		{"audit_events", []mongo.IndexModel{
			idx("idx_audit_timestamp", bson.D{{Key: "timestamp", Value: -1}}),
			idx("idx_audit_org_timestamp", bson.D{{Key: "organization_id", Value: 1}, {Key: "timestamp", Value: -1}}),
			idx("idx_audit_org_category_timestamp", bson.D{{Key: "organization_id", Value: 1}, {Key: "category", Value: 1}, {Key: "timestamp", Value: -1}}),
		}},
		{"oauth_states", []mongo.IndexModel{
			uniq("uniq_oauth_state", bson.D{{Key: "state", Value: 1}}),
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauth_expires"),
			},
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	existing := map[string]existingIndex{}
	for cur.Next(ctx) {
		var ix existingIndex
		if err := cur.Decode(&ix); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(ix.Key)] = ix
	}
	return existing, cur.Err()
}

// ensureIndexSet creates missing indexes and replaces ones whose key
// pattern matches but whose name or uniqueness differs.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes to reconcile.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := ""
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if boolVal(ex.Unique) == boolVal(unique) && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			zap.L().Info("replacing index",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.Bool("unique", boolVal(unique)))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if mongo.IsDuplicateKeyError(err) && boolVal(unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
				continue
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", boolVal(unique)),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
