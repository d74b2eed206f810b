package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"athena/interview/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens a Mongo client for the prompt catalog.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is empty")
	}
	c, err := mongo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// MongoCatalog reads prompt sets from a collection keyed by version id.
// Sets are immutable, so resolved versions are cached for the process lifetime.
type MongoCatalog struct {
	col *mongo.Collection

	mu    sync.RWMutex
	cache map[string][]models.Prompt
}

func NewMongoCatalog(db *mongo.Database, collection string) *MongoCatalog {
	if collection == "" {
		collection = "prompt_sets"
	}
	return &MongoCatalog{
		col:   db.Collection(collection),
		cache: make(map[string][]models.Prompt),
	}
}

func (c *MongoCatalog) Resolve(ctx context.Context, versionID string) ([]models.Prompt, error) {
	c.mu.RLock()
	cached, ok := c.cache[versionID]
	c.mu.RUnlock()
	if ok {
		return clonePrompts(cached), nil
	}

	var set PromptSet
	err := c.col.FindOne(ctx, bson.M{"_id": versionID}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load prompt set %s: %w", versionID, err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[versionID] = set.Prompts
	c.mu.Unlock()
	return clonePrompts(set.Prompts), nil
}

// Publish stores a new prompt set. Existing versions are never overwritten.
func (c *MongoCatalog) Publish(ctx context.Context, set PromptSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	if _, err := c.col.InsertOne(ctx, set); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("prompt set %s already published", set.Version)
		}
		return err
	}
	return nil
}

// Fallback resolves from primary and falls back to secondary when the
// version is unknown to primary.
type Fallback struct {
	Primary   Catalog
	Secondary Catalog
}

func (f Fallback) Resolve(ctx context.Context, versionID string) ([]models.Prompt, error) {
	prompts, err := f.Primary.Resolve(ctx, versionID)
	if errors.Is(err, ErrVersionNotFound) && f.Secondary != nil {
		return f.Secondary.Resolve(ctx, versionID)
	}
	return prompts, err
}

func clonePrompts(in []models.Prompt) []models.Prompt {
	out := make([]models.Prompt, len(in))
	copy(out, in)
	return out
}
