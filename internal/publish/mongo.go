package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sitebuilder/internal/domain"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const mongoCollection = "published_sites"

// mongoPublisher upserts one document per configuration, keyed by its id.
type mongoPublisher struct {
	client *mongo.Client
	dbName string
}

func newMongoPublisher(ctx context.Context, t Target, password string) (*mongoPublisher, error) {
	uri := buildMongoURI(t, password)
	dbName := t.Database
	if dbName == "" {
		dbName = "sitebuilder"
	}

	log.Debug("connecting to mongo", "uri", redact(uri, password), "database", dbName)
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoPublisher{client: client, dbName: dbName}, nil
}

func (p *mongoPublisher) Name() string { return "mongodb:" + p.dbName }

func (p *mongoPublisher) Publish(ctx context.Context, doc *domain.SiteDocument) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	body, err := toBSON(doc)
	if err != nil {
		return err
	}
	id := doc.Configuration.ID
	record := bson.M{
		"_id":         id,
		"name":        doc.Configuration.Name,
		"document":    body,
		"publishedAt": time.Now().UTC(),
	}
	coll := p.client.Database(p.dbName).Collection(mongoCollection)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, record, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (p *mongoPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.client.Disconnect(ctx)
}

// toBSON converts the document through its JSON form so field names match
// the json tags used everywhere else.
func toBSON(doc *domain.SiteDocument) (bson.D, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &out); err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	return out, nil
}
