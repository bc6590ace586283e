package ai

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrQuotaExceeded is returned when a tenant's daily embedding budget is
// spent; ingestion for that tenant resumes after the daily reset.
var ErrQuotaExceeded = errors.New("daily embedding quota exceeded")

// TenantEmbeddingQuota tracks per-tenant daily embedding usage.
type TenantEmbeddingQuota struct {
	TenantID        string    `bson:"tenant_id"`
	DailyTokenLimit int       `bson:"daily_token_limit"`
	TokensUsedToday int       `bson:"tokens_used_today"`
	ChunksToday     int       `bson:"chunks_today"`
	LastResetDate   time.Time `bson:"last_reset_date"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

const defaultDailyTokenLimit = 500000

// CheckTenantQuota verifies the tenant can spend estimatedTokens on
// embeddings today and records the usage.
func CheckTenantQuota(ctx context.Context, db *mongo.Database, tenantID string, estimatedTokens, chunks int) error {
	col := db.Collection("embedding_quotas")

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Roll the window when the stored reset date is stale
	_, err := col.UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "last_reset_date": bson.M{"$lt": today}},
		bson.M{"$set": bson.M{
			"tokens_used_today": 0,
			"chunks_today":      0,
			"last_reset_date":   today,
			"updated_at":        now,
		}},
	)
	if err != nil {
		return err
	}

	var quota TenantEmbeddingQuota
	err = col.FindOne(ctx, bson.M{"tenant_id": tenantID}).Decode(&quota)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		quota = TenantEmbeddingQuota{
			TenantID:        tenantID,
			DailyTokenLimit: defaultDailyTokenLimit,
			LastResetDate:   today,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := col.InsertOne(ctx, quota); err != nil {
			return err
		}
	}

	if quota.TokensUsedToday+estimatedTokens > quota.DailyTokenLimit {
		return ErrQuotaExceeded
	}

	_, err = col.UpdateOne(ctx,
		bson.M{"tenant_id": tenantID},
		bson.M{
			"$inc": bson.M{
				"tokens_used_today": estimatedTokens,
				"chunks_today":      chunks,
			},
			"$set": bson.M{"updated_at": now},
		},
	)
	return err
}

// GetTenantQuotaStatus returns current quota usage for a tenant.
func GetTenantQuotaStatus(ctx context.Context, db *mongo.Database, tenantID string) (*TenantEmbeddingQuota, error) {
	var quota TenantEmbeddingQuota
	err := db.Collection("embedding_quotas").FindOne(ctx, bson.M{"tenant_id": tenantID}).Decode(&quota)
	if err != nil {
		return nil, err
	}
	return &quota, nil
}

// SetTenantQuotaLimit sets the daily embedding token limit for a tenant.
func SetTenantQuotaLimit(ctx context.Context, db *mongo.Database, tenantID string, dailyLimit int) error {
	now := time.Now()
	_, err := db.Collection("embedding_quotas").UpdateOne(ctx,
		bson.M{"tenant_id": tenantID},
		bson.M{"$set": bson.M{
			"daily_token_limit": dailyLimit,
			"updated_at":        now,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}
