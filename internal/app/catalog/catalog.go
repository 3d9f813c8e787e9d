// internal/app/catalog/catalog.go
package catalog

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed frameworks.yaml
var catalogFS embed.FS

// Catalog is the built-in list of compliance frameworks.
type Catalog struct {
	Frameworks []Framework `yaml:"frameworks"`
}

// Framework is one catalog entry with its controls and certification tasks.
type Framework struct {
	Code        string    `yaml:"code"`
	Name        string    `yaml:"name"`
	Version     string    `yaml:"version"`
	Description string    `yaml:"description"`
	Controls    []Control `yaml:"controls"`
	Tasks       []Task    `yaml:"tasks"`
}

// Control is a template control. DefaultStatus falls back to not_started.
type Control struct {
	Code          string `yaml:"code"`
	Title         string `yaml:"title"`
	Domain        string `yaml:"domain"`
	Description   string `yaml:"description"`
	DefaultStatus string `yaml:"default_status"`
}

// Task is a certification task template.
type Task struct {
	Key         string `yaml:"key"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Phase       string `yaml:"phase"`
	DueOffset   int    `yaml:"due_offset_days"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	data, err := catalogFS.ReadFile("frameworks.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	codes := map[string]bool{}
	for _, f := range c.Frameworks {
		if strings.TrimSpace(f.Code) == "" || strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("catalog: framework needs a code and a name")
		}
		if codes[f.Code] {
			return fmt.Errorf("catalog: duplicate framework %q", f.Code)
		}
		codes[f.Code] = true

		controls := map[string]bool{}
		for _, ctl := range f.Controls {
			if ctl.Code == "" || ctl.Title == "" {
				return fmt.Errorf("catalog: %s has a control without code or title", f.Code)
			}
			if controls[ctl.Code] {
				return fmt.Errorf("catalog: %s repeats control %q", f.Code, ctl.Code)
			}
			if ctl.DefaultStatus != "" && !models.ValidControlStatus(ctl.DefaultStatus) {
				return fmt.Errorf("catalog: %s control %s has unknown default status %q", f.Code, ctl.Code, ctl.DefaultStatus)
			}
			controls[ctl.Code] = true
		}

		keys := map[string]bool{}
		for _, t := range f.Tasks {
			if t.Key == "" || t.Title == "" {
				return fmt.Errorf("catalog: %s has a task without key or title", f.Code)
			}
			if keys[t.Key] {
				return fmt.Errorf("catalog: %s repeats task %q", f.Code, t.Key)
			}
			if t.DueOffset < 0 {
				return fmt.Errorf("catalog: %s task %s has a negative due offset", f.Code, t.Key)
			}
			keys[t.Key] = true
		}
	}
	return nil
}

// Store is the subset of frameworkstore.Store that Sync writes to.
type Store interface {
	UpsertFramework(ctx context.Context, f models.Framework) (models.Framework, error)
	UpsertControl(ctx context.Context, c models.FrameworkControl) error
	UpsertTaskTemplate(ctx context.Context, t models.TaskTemplate) error
}

// SyncResult counts what Sync wrote.
type SyncResult struct {
	Frameworks int
	Controls   int
	Tasks      int
}

// Sync upserts every framework, control and task template. It is safe to
// run on every startup: existing rows keep their IDs.
func (c *Catalog) Sync(ctx context.Context, store Store, logger *zap.Logger) (SyncResult, error) {
	var res SyncResult
	for _, f := range c.Frameworks {
		fw, err := store.UpsertFramework(ctx, models.Framework{
			Code:        f.Code,
			Name:        f.Name,
			Version:     f.Version,
			Description: strings.TrimSpace(f.Description),
		})
		if err != nil {
			return res, fmt.Errorf("upsert framework %s: %w", f.Code, err)
		}
		res.Frameworks++

		for i, ctl := range f.Controls {
			status := ctl.DefaultStatus
			if status == "" {
				status = models.ControlNotStarted
			}
			err := store.UpsertControl(ctx, models.FrameworkControl{
				FrameworkID:   fw.ID,
				Code:          ctl.Code,
				Title:         ctl.Title,
				Domain:        ctl.Domain,
				Description:   strings.TrimSpace(ctl.Description),
				DefaultStatus: status,
				SortKey:       i + 1,
			})
			if err != nil {
				return res, fmt.Errorf("upsert control %s/%s: %w", f.Code, ctl.Code, err)
			}
			res.Controls++
		}

		for i, t := range f.Tasks {
			err := store.UpsertTaskTemplate(ctx, models.TaskTemplate{
				FrameworkID: fw.ID,
				Key:         t.Key,
				Title:       t.Title,
				Description: strings.TrimSpace(t.Description),
				Phase:       t.Phase,
				DueOffset:   t.DueOffset,
				SortKey:     i + 1,
			})
			if err != nil {
				return res, fmt.Errorf("upsert task template %s/%s: %w", f.Code, t.Key, err)
			}
			res.Tasks++
		}
	}

	logger.Info("framework catalog synced",
		zap.Int("frameworks", res.Frameworks),
		zap.Int("controls", res.Controls),
		zap.Int("task_templates", res.Tasks))
	return res, nil
}
