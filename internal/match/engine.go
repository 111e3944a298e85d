// Package match orchestrates candidate scoring, match persistence, and
// new-match notifications for a single project.
package match

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/expanders360/vendor-match/internal/model"
	"github.com/expanders360/vendor-match/pkg/mailer"
)

// Store is the persistence surface the engine needs.
type Store interface {
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	ComputeCandidates(ctx context.Context, project *model.Project) ([]model.Candidate, error)
	UpsertMatch(ctx context.Context, projectID, vendorID int64, score float64) (bool, error)
	ListMatchesByProject(ctx context.Context, projectID int64) ([]model.Match, error)
}

// Notifier sends the new-match notification to the project's client.
type Notifier interface {
	SendMatchNotification(ctx context.Context, to string, projectID, vendorID int64, score float64) (*mailer.Delivery, error)
}

// Engine rebuilds the match set for one project at a time.
type Engine struct {
	store    Store
	notifier Notifier
}

// NewEngine creates a matching engine.
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier}
}

// Rebuild recomputes candidates for the project, upserts one match per
// candidate, and notifies the owning client for every match seen for the
// first time. A failed notification is logged and does not stop the
// remaining candidates from being persisted or notified. The returned
// slice is the project's full current match set.
func (e *Engine) Rebuild(ctx context.Context, projectID int64) ([]model.Match, error) {
	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// A project whose client cannot be resolved is a data-integrity
	// fault; surface it rather than skipping silently.
	client, err := e.store.GetClient(ctx, project.ClientID)
	if err != nil {
		return nil, eris.Wrapf(err, "match: resolve client for project %d", projectID)
	}

	candidates, err := e.store.ComputeCandidates(ctx, project)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.Int64("project_id", projectID))
	log.Info("rebuilding matches", zap.Int("candidates", len(candidates)))

	for _, c := range candidates {
		isNew, err := e.store.UpsertMatch(ctx, projectID, c.VendorID, c.Score)
		if err != nil {
			return nil, err
		}

		if !isNew {
			log.Debug("match refreshed",
				zap.Int64("vendor_id", c.VendorID),
				zap.Float64("score", c.Score),
			)
			continue
		}

		log.Info("new match found",
			zap.Int64("vendor_id", c.VendorID),
			zap.Float64("score", c.Score),
			zap.String("notify", client.ContactEmail),
		)
		delivery, err := e.notifier.SendMatchNotification(ctx, client.ContactEmail, projectID, c.VendorID, c.Score)
		if err != nil {
			log.Error("match notification failed",
				zap.Int64("vendor_id", c.VendorID),
				zap.String("to", client.ContactEmail),
				zap.Error(err),
			)
			continue
		}
		log.Info("match notification sent",
			zap.Int64("vendor_id", c.VendorID),
			zap.String("message_id", delivery.MessageID),
		)
	}

	return e.store.ListMatchesByProject(ctx, projectID)
}
