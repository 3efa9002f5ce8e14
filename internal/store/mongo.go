package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/spothole/spothole-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PotholesCollection = "potholes"
	UsersCollection    = "users"
)

type MongoStore struct {
	db       *mongo.Database
	potholes *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, potholes: db.Collection(PotholesCollection)}
}

func (s *MongoStore) Create(ctx context.Context, p *models.Pothole) error {
	if err := validateNew(p); err != nil {
		return err
	}
	prepareNew(p, now())
	if _, err := s.potholes.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert pothole: %w", err)
	}
	return nil
}

func (s *MongoStore) FindAll(ctx context.Context) ([]models.Pothole, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) FindWithin(ctx context.Context, box models.BoundingBox) ([]models.Pothole, error) {
	return s.find(ctx, withinFilter(box))
}

// withinFilter matches the box edge-inclusively on the raw [lng, lat] pair,
// the same planar test as BoundingBox.Contains. A $geoWithin polygon would
// use great-circle edges and reject world-sized rings.
func withinFilter(box models.BoundingBox) bson.M {
	return bson.M{
		"location.coordinates.0": bson.M{"$gte": box.MinLng, "$lte": box.MaxLng},
		"location.coordinates.1": bson.M{"$gte": box.MinLat, "$lte": box.MaxLat},
	}
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.Pothole, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.potholes.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find potholes: %w", err)
	}
	defer cur.Close(ctx)

	potholes := make([]models.Pothole, 0)
	for cur.Next(ctx) {
		var p models.Pothole
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode pothole: %w", err)
		}
		p.Normalize()
		potholes = append(potholes, p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate potholes: %w", err)
	}
	return potholes, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pothole, error) {
	var p models.Pothole
	if err := s.potholes.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find pothole: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (s *MongoStore) Comments(ctx context.Context, id primitive.ObjectID) ([]models.Comment, error) {
	var doc struct {
		Comments []models.Comment `bson:"comments"`
	}
	opts := options.FindOne().SetProjection(bson.M{"comments": 1})
	if err := s.potholes.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find comments: %w", err)
	}
	if doc.Comments == nil {
		return []models.Comment{}, nil
	}
	return doc.Comments, nil
}

// AppendComment uses a pipeline update so documents whose comments field is
// missing or null are handled the same as an empty log. The comment is
// wrapped in $literal so text starting with "$" is not read as a field path.
func (s *MongoStore) AppendComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error {
	update := bson.A{
		bson.M{"$set": bson.M{
			"comments": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$comments", bson.A{}}},
				bson.A{bson.M{"$literal": c}},
			}},
			"updatedAt": now(),
		}},
	}
	res, err := s.potholes.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("append comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ToggleUpvote(ctx context.Context, id, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	current := bson.M{"$ifNull": bson.A{"$upvotes", bson.A{}}}
	update := bson.A{
		bson.M{"$set": bson.M{
			"upvotes": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{userID, current}},
				bson.M{"$filter": bson.M{
					"input": current,
					"cond":  bson.M{"$ne": bson.A{"$$this", userID}},
				}},
				bson.M{"$concatArrays": bson.A{current, bson.A{userID}}},
			}},
			"updatedAt": now(),
		}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"upvotes": 1})

	var doc struct {
		Upvotes []primitive.ObjectID `bson:"upvotes"`
	}
	if err := s.potholes.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("toggle upvote: %w", err)
	}
	if doc.Upvotes == nil {
		return []primitive.ObjectID{}, nil
	}
	return doc.Upvotes, nil
}

func (s *MongoStore) Save(ctx context.Context, p *models.Pothole) error {
	p.Normalize()
	p.UpdatedAt = now()
	res, err := s.potholes.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("save pothole: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) NormalizeLegacy(ctx context.Context) (int64, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"schemaVersion": bson.M{"$exists": false}},
		bson.M{"schemaVersion": bson.M{"$lt": models.CurrentSchemaVersion}},
	}}
	cur, err := s.potholes.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("find legacy potholes: %w", err)
	}
	defer cur.Close(ctx)

	var changed int64
	for cur.Next(ctx) {
		var p models.Pothole
		if err := cur.Decode(&p); err != nil {
			return changed, fmt.Errorf("decode legacy pothole: %w", err)
		}
		if !p.Normalize() {
			continue
		}
		if _, err := s.potholes.ReplaceOne(ctx, bson.M{"_id": p.ID}, p); err != nil {
			return changed, fmt.Errorf("rewrite pothole %s: %w", p.ID.Hex(), err)
		}
		changed++
	}
	return changed, cur.Err()
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// MongoUserDirectory reads the users collection maintained by the identity
// provider's adapter.
type MongoUserDirectory struct {
	users *mongo.Collection
}

func NewMongoUserDirectory(db *mongo.Database) *MongoUserDirectory {
	return &MongoUserDirectory{users: db.Collection(UsersCollection)}
}

func (d *MongoUserDirectory) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return d.findOne(ctx, bson.M{"_id": id})
}

func (d *MongoUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findOne(ctx, bson.M{"email": email})
}

func (d *MongoUserDirectory) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := d.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (d *MongoUserDirectory) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	result := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1, "image": 1, "email": 1})
	cur, err := d.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		result[u.ID] = u
	}
	return result, cur.Err()
}
