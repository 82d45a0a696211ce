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

type MongoRequestService struct {
	requestsCol *mongo.Collection
	users       UserService
}

func NewMongoRequestService(db *mongo.Database, users UserService) *MongoRequestService {
	return &MongoRequestService{
		requestsCol: db.Collection(storage.RequestsCollection),
		users:       users,
	}
}

func (s *MongoRequestService) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Request, error) {
	cur, err := s.requestsCol.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := make([]*models.Request, 0)
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	if err := attachRequesters(ctx, s.users, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MongoRequestService) List(ctx context.Context) ([]*models.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	return s.find(ctx,
		bson.M{"status": models.RequestStatusActive},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
}

func (s *MongoRequestService) ListNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	return s.find(ctx, bson.M{
		"status":   models.RequestStatusActive,
		"location": nearFilter(q.Lng, q.Lat, maxDistanceOrDefault(q.MaxDistance)),
	})
}

func (s *MongoRequestService) Create(ctx context.Context, userID string, req *models.CreateRequestRequest) (*models.Request, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	r := newRequest(userID, req)
	if _, err := s.requestsCol.InsertOne(ctx, r); err != nil {
		return nil, err
	}

	if err := attachRequesters(ctx, s.users, []*models.Request{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *MongoRequestService) UpdateStatus(ctx context.Context, callerID, id, status string) (*models.Request, error) {
	body := models.UpdateRequestStatusRequest{Status: status}
	if err := validationFrom(body.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res := s.requestsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "user": callerID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Request
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ownershipError(ctx, s.requestsCol, id, ErrRequestNotFound)
		}
		return nil, err
	}

	if err := attachRequesters(ctx, s.users, []*models.Request{&updated}); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *MongoRequestService) Delete(ctx context.Context, callerID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := s.requestsCol.DeleteOne(ctx, bson.M{"_id": id, "user": callerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ownershipError(ctx, s.requestsCol, id, ErrRequestNotFound)
	}
	return nil
}

func (s *MongoRequestService) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := s.requestsCol.UpdateMany(
		ctx,
		bson.M{"status": models.RequestStatusActive, "createdAt": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{"status": models.RequestStatusExpired, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
