package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
	"github.com/Kanishk2004/plug-rag-sub002/models"
)

// Reaper periodically fails documents stuck in processing. A worker crash
// between the status flip and the final update would otherwise leave them
// processing forever and block re-submission via the dedupe check.
type Reaper struct {
	cfg       *config.Config
	documents *mongo.Collection
	crawls    *mongo.Collection
	scheduler *gocron.Scheduler
}

func NewReaper(cfg *config.Config, db *mongo.Database) *Reaper {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &Reaper{
		cfg:       cfg,
		documents: db.Collection("documents"),
		crawls:    db.Collection("crawls"),
		scheduler: s,
	}
}

// Start registers the sweep job and runs the scheduler in the background.
func (r *Reaper) Start() error {
	_, err := r.scheduler.Every(r.cfg.ReaperInterval).Tag("stuck-document-reaper").Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return r.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	logger.Info("Reaper started", "interval", r.cfg.ReaperInterval.String(), "max_age", r.cfg.StuckDocMaxAge.String())
	return nil
}

func (r *Reaper) Stop() {
	r.scheduler.Stop()
}

// Sweep fails documents and crawls that have sat in an in-flight state
// longer than the configured maximum.
func (r *Reaper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.cfg.StuckDocMaxAge)

	cursor, err := r.documents.Find(ctx,
		bson.M{
			"status":     models.StatusProcessing,
			"updated_at": bson.M{"$lt": cutoff},
		},
		options.Find().SetLimit(int64(r.cfg.ReaperBatchSize)).SetProjection(bson.M{"_id": 1, "tenant_id": 1}),
	)
	if err != nil {
		return err
	}

	var stuck []models.Document
	if err := cursor.All(ctx, &stuck); err != nil {
		return err
	}

	for _, doc := range stuck {
		_, err := r.documents.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "status": models.StatusProcessing},
			bson.M{"$set": bson.M{
				"status":        models.StatusFailed,
				"error_message": "processing timed out",
				"updated_at":    time.Now(),
			}},
		)
		if err != nil {
			logger.Error("Failed to reap document", "document_id", doc.ID.Hex(), "error", err)
			continue
		}
		logger.Warn("Reaped stuck document", "document_id", doc.ID.Hex(), "tenant_id", doc.TenantID)
	}

	res, err := r.crawls.UpdateMany(ctx,
		bson.M{
			"status":     models.CrawlStatusCrawling,
			"updated_at": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{
			"status":     models.CrawlStatusFailed,
			"error":      "crawl timed out",
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount > 0 {
		logger.Warn("Reaped stuck crawls", "count", res.ModifiedCount)
	}
	return nil
}
