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

// mongoTimeout bounds every datastore round trip.
const mongoTimeout = 10 * time.Second

type MongoUserService struct {
	usersCol *mongo.Collection
}

func NewMongoUserService(db *mongo.Database) *MongoUserService {
	return &MongoUserService{usersCol: db.Collection(storage.UsersCollection)}
}

// levelSwitch computes the level for the points held at path.
func levelSwitch(path string) bson.D {
	return bson.D{{Key: "$switch", Value: bson.D{
		{Key: "branches", Value: bson.A{
			bson.D{{Key: "case", Value: bson.D{{Key: "$gte", Value: bson.A{path, models.ChampionMinPoints}}}}, {Key: "then", Value: string(models.LevelChampion)}},
			bson.D{{Key: "case", Value: bson.D{{Key: "$gte", Value: bson.A{path, models.OakMinPoints}}}}, {Key: "then", Value: string(models.LevelOak)}},
			bson.D{{Key: "case", Value: bson.D{{Key: "$gte", Value: bson.A{path, models.SaplingMinPoints}}}}, {Key: "then", Value: string(models.LevelSapling)}},
		}},
		{Key: "default", Value: string(models.LevelSeedling)},
	}}}
}

func (s *MongoUserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	user, err := newUser(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	if _, err := s.usersCol.InsertOne(ctx, user); err != nil {
		if storage.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return user, nil
}

func (s *MongoUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var user models.User
	if err := s.usersCol.FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := checkPassword(&user, password); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var user models.User
	if err := s.usersCol.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserService) FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	found := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	cur, err := s.usersCol.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		found[u.ID] = &u
	}
	return found, cur.Err()
}

func (s *MongoUserService) UpdateProfile(ctx context.Context, callerID, id string, req *models.UpdateProfileRequest) (*models.User, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	if callerID != id {
		// Distinguish not found vs forbidden.
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrForbidden
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.ProfilePhoto != nil {
		set["profilePhoto"] = *req.ProfilePhoto
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}

	res := s.usersCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.User
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *MongoUserService) AdjustPoints(ctx context.Context, id string, delta int) (*models.PointsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "ecoPoints", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$ecoPoints", 0}}},
				delta,
			}}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
		{{Key: "$set", Value: bson.D{{Key: "level", Value: levelSwitch("$ecoPoints")}}}},
	}

	res := s.usersCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"_id": 1, "ecoPoints": 1, "level": 1}),
	)

	var out models.PointsResponse
	if err := res.Decode(&out); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *MongoUserService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	limit = clampLeaderboardLimit(limit)

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	cur, err := s.usersCol.Find(
		ctx,
		bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "ecoPoints", Value: -1}, {Key: "createdAt", Value: 1}}).
			SetLimit(int64(limit)).
			SetProjection(bson.M{"name": 1, "profilePhoto": 1, "ecoPoints": 1, "level": 1, "trustScore": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	entries := make([]*models.LeaderboardEntry, 0, limit)
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
