package menu

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/bistro/internal/api"
)

// Failure is one catalog item the backend refused.
type Failure struct {
	Name    string
	Message string
	Err     error
}

// Result summarizes an import.
type Result struct {
	Created []api.MenuItem
	Skipped []string
	Failed  []Failure
}

// Importer creates catalog items on the backend.
type Importer struct {
	client *api.Client
	logger *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(client *api.Client, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{client: client, logger: logger}
}

// Import creates every catalog item whose name is not already on the menu
// (compared case-insensitively). A failed item does not stop the import; a
// rejected credential does, since every later request would fail the same way.
func (im *Importer) Import(ctx context.Context, catalog *Catalog, dryRun bool) (*Result, error) {
	existing, err := im.client.ListMenu(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(existing))
	for _, item := range existing {
		names[strings.ToLower(item.Name)] = true
	}

	res := &Result{}
	for _, in := range catalog.Items {
		key := strings.ToLower(in.Name)
		if names[key] {
			res.Skipped = append(res.Skipped, in.Name)
			continue
		}
		if dryRun {
			res.Created = append(res.Created, api.MenuItem{Name: in.Name, Description: in.Description, Price: in.Price, Category: in.Category, Image: in.Image})
			names[key] = true
			continue
		}

		created, err := im.client.CreateMenuItem(ctx, in)
		if err != nil {
			if api.IsAuthRejected(err) {
				return res, err
			}
			im.logger.Warn("menu item rejected", "name", in.Name, "error", err)
			res.Failed = append(res.Failed, Failure{Name: in.Name, Message: api.MessageOr(err, "Failed to create menu item"), Err: err})
			continue
		}
		names[key] = true
		res.Created = append(res.Created, *created)
	}

	im.logger.Info("menu import finished",
		"created", len(res.Created),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
		"dry_run", dryRun,
	)
	return res, nil
}
