package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/storage"
)

type MongoItemService struct {
	itemsCol *mongo.Collection
	users    UserService
}

func NewMongoItemService(db *mongo.Database, users UserService) *MongoItemService {
	return &MongoItemService{
		itemsCol: db.Collection(storage.ItemsCollection),
		users:    users,
	}
}

// nearFilter matches documents within maxDistance metres, nearest first.
func nearFilter(lng, lat, maxDistance float64) bson.M {
	return bson.M{
		"$near": bson.M{
			"$geometry": bson.M{
				"type":        "Point",
				"coordinates": bson.A{lng, lat},
			},
			"$maxDistance": maxDistance,
		},
	}
}

func (s *MongoItemService) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Item, error) {
	cur, err := s.itemsCol.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := make([]*models.Item, 0)
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MongoItemService) List(ctx context.Context) ([]*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	results, err := s.find(ctx,
		bson.M{"status": models.ItemStatusAvailable},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	if err := attachOwners(ctx, s.users, results, false); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MongoItemService) ListNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	filter := bson.M{
		"status":   models.ItemStatusAvailable,
		"location": nearFilter(q.Lng, q.Lat, maxDistanceOrDefault(q.MaxDistance)),
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	results, err := s.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := attachOwners(ctx, s.users, results, false); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MongoItemService) GetByID(ctx context.Context, id string) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var item models.Item
	if err := s.itemsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if err := attachOwners(ctx, s.users, []*models.Item{&item}, true); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoItemService) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Item, error) {
	found := make(map[string]*models.Item, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	items, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		found[it.ID] = it
	}
	return found, nil
}

func (s *MongoItemService) Create(ctx context.Context, ownerID string, req *models.CreateItemRequest) (*models.Item, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	item := newItem(ownerID, req)
	if _, err := s.itemsCol.InsertOne(ctx, item); err != nil {
		return nil, err
	}

	if err := attachOwners(ctx, s.users, []*models.Item{item}, false); err != nil {
		return nil, err
	}
	return item, nil
}

func itemUpdateSet(req *models.UpdateItemRequest) bson.M {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Category != nil {
		set["category"] = *req.Category
	}
	if req.Type != nil {
		set["type"] = *req.Type
	}
	if req.Price != nil {
		set["price"] = *req.Price
	}
	if req.ImageURL != nil {
		set["imageUrl"] = *req.ImageURL
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.Coordinates != nil {
		set["location"] = models.PointFromLatLng(req.Coordinates)
	}
	return set
}

// ownershipError distinguishes a missing document from one owned by someone else
// after an owner-filtered write matched nothing.
func ownershipError(ctx context.Context, col *mongo.Collection, id string, notFound error) error {
	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return ErrForbidden
}

func (s *MongoItemService) Update(ctx context.Context, callerID, id string, req *models.UpdateItemRequest) (*models.Item, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res := s.itemsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "owner": callerID},
		bson.M{"$set": itemUpdateSet(req)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Item
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ownershipError(ctx, s.itemsCol, id, ErrItemNotFound)
		}
		return nil, err
	}

	if err := attachOwners(ctx, s.users, []*models.Item{&updated}, false); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *MongoItemService) Delete(ctx context.Context, callerID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := s.itemsCol.DeleteOne(ctx, bson.M{"_id": id, "owner": callerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ownershipError(ctx, s.itemsCol, id, ErrItemNotFound)
	}
	return nil
}
