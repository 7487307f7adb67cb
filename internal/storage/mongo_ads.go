package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"adsconsole/internal/dbclient"
	"adsconsole/internal/domain"
)

// adDocument is the stored shape of an ad; identities are ObjectID hex strings.
type adDocument struct {
	ID       bson.ObjectID `bson:"_id"`
	Site     string        `bson:"site"`
	Position string        `bson:"position"`
	Order    int           `bson:"order"`
	Content  string        `bson:"content"`
}

func (d adDocument) block() domain.Block {
	return domain.AdRecord{
		MongoID:  d.ID.Hex(),
		Site:     domain.Site(d.Site),
		Position: domain.Zone(d.Position),
		Order:    d.Order,
		Content:  d.Content,
	}.Block()
}

// MongoAdStore implements domain.AdsRepository on a MongoDB collection.
type MongoAdStore struct {
	coll *mongo.Collection
}

func NewMongoAdStore(m *dbclient.Mongo) *MongoAdStore {
	return &MongoAdStore{coll: m.Collection("ads")}
}

// EnsureIndexes creates the site/position/order index.
func (s *MongoAdStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "site", Value: 1}, {Key: "position", Value: 1}, {Key: "order", Value: 1}},
	})
	return err
}

func (s *MongoAdStore) List(ctx context.Context, site domain.Site) ([]domain.Block, error) {
	return s.find(ctx, bson.M{"site": string(site)})
}

// UpsertBatch replaces the zone document by document. MongoDB transactions
// need a replica set, so a failure midway can leave the zone partially
// written; the next save converges it.
func (s *MongoAdStore) UpsertBatch(ctx context.Context, site domain.Site, zone domain.Zone, blocks []domain.Block) ([]domain.Block, error) {
	keep := make([]bson.ObjectID, 0, len(blocks))
	for i, b := range blocks {
		oid := bson.NewObjectID()
		if id := b.Identity.ID(); id != "" {
			parsed, err := dbclient.ParseObjectID(id)
			if err != nil {
				return nil, domain.Validation("upsert ad", err)
			}
			oid = parsed
		}
		doc := adDocument{ID: oid, Site: string(site), Position: string(zone), Order: i, Content: b.Content}
		if _, err := s.coll.ReplaceOne(ctx, upsertFilter(site, oid), doc, options.Replace().SetUpsert(true)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.Validation("upsert ad", fmt.Errorf("ad %s belongs to another site", oid.Hex()))
			}
			return nil, fmt.Errorf("upsert ad %s: %w", oid.Hex(), err)
		}
		keep = append(keep, oid)
	}

	if _, err := s.coll.DeleteMany(ctx, bson.M{
		"site":     string(site),
		"position": string(zone),
		"_id":      bson.M{"$nin": keep},
	}); err != nil {
		return nil, fmt.Errorf("prune zone: %w", err)
	}
	return s.find(ctx, bson.M{"site": string(site), "position": string(zone)})
}

// upsertFilter matches an ad only within site, so a foreign id collides on
// _id instead of moving the other site's document.
func upsertFilter(site domain.Site, oid bson.ObjectID) bson.M {
	return bson.M{"_id": oid, "site": string(site)}
}

func (s *MongoAdStore) Delete(ctx context.Context, id string) error {
	oid, err := dbclient.ParseObjectID(id)
	if err != nil {
		return fmt.Errorf("delete ad %s: %w", id, domain.ErrNotFound)
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete ad %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *MongoAdStore) find(ctx context.Context, filter bson.M) ([]domain.Block, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "order", Value: 1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find ads: %w", err)
	}
	var docs []adDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ads: %w", err)
	}
	blocks := make([]domain.Block, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, d.block())
	}
	return blocks, nil
}
