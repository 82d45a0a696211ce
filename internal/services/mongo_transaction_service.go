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

type MongoTransactionService struct {
	txCol *mongo.Collection
	users UserService
	items ItemService
}

func NewMongoTransactionService(db *mongo.Database, users UserService, items ItemService) *MongoTransactionService {
	return &MongoTransactionService{
		txCol: db.Collection(storage.TransactionsCollection),
		users: users,
		items: items,
	}
}

func participantFilter(callerID string) bson.A {
	return bson.A{
		bson.M{"borrower": callerID},
		bson.M{"lender": callerID},
	}
}

func (s *MongoTransactionService) populate(ctx context.Context, txs ...*models.Transaction) error {
	return attachTransactionRefs(ctx, s.users, s.items, txs)
}

func (s *MongoTransactionService) get(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.txCol.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *MongoTransactionService) list(ctx context.Context, filter bson.M) ([]*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	cur, err := s.txCol.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := make([]*models.Transaction, 0)
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, results...); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MongoTransactionService) List(ctx context.Context) ([]*models.Transaction, error) {
	return s.list(ctx, bson.M{})
}

func (s *MongoTransactionService) ListForUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.list(ctx, bson.M{"$or": participantFilter(userID)})
}

func (s *MongoTransactionService) Create(ctx context.Context, borrowerID string, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	if err := checkCreateTransaction(ctx, s.users, s.items, borrowerID, req); err != nil {
		return nil, err
	}

	t := newTransaction(borrowerID, req)
	if _, err := s.txCol.InsertOne(ctx, t); err != nil {
		return nil, err
	}

	if err := s.populate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *MongoTransactionService) Update(ctx context.Context, callerID, id string, req *models.UpdateTransactionRequest) (*models.Transaction, bool, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	current, err := s.get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !current.IsParticipant(callerID) {
		return nil, false, ErrForbidden
	}

	completing := req.Status != nil && *req.Status == models.TransactionStatusCompleted
	if completing && current.Status == models.TransactionStatusCancelled {
		return nil, false, errCannotComplete()
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.PickupTime != nil {
		set["pickupTime"] = req.PickupTime.UTC()
	}
	if req.Status != nil && !completing {
		if err := checkStatusChange(current.Status, *req.Status); err != nil {
			return nil, false, err
		}
		set["status"] = *req.Status
	}

	// The status filter keeps a concurrent completion from being overwritten.
	res := s.txCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "status": current.Status},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Transaction
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, NewValidationError("status", "Transaction status changed, reload and retry")
		}
		return nil, false, err
	}

	if completing {
		return s.Complete(ctx, callerID, id)
	}

	if err := s.populate(ctx, &updated); err != nil {
		return nil, false, err
	}
	return &updated, false, nil
}

// claimAward adds userID to awardedTo unless it is already there.
func (s *MongoTransactionService) claimAward(ctx context.Context, txID, userID string) (bool, error) {
	res, err := s.txCol.UpdateOne(
		ctx,
		bson.M{
			"_id":           txID,
			"status":        models.TransactionStatusCompleted,
			"pointsAwarded": false,
			"awardedTo":     bson.M{"$ne": userID},
		},
		bson.M{"$addToSet": bson.M{"awardedTo": userID}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// releaseAward runs even when ctx has expired, which is usually why the
// credit failed.
func (s *MongoTransactionService) releaseAward(ctx context.Context, txID, userID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mongoTimeout)
	defer cancel()

	_, err := s.txCol.UpdateOne(ctx, bson.M{"_id": txID}, bson.M{"$pull": bson.M{"awardedTo": userID}})
	return err
}

func (s *MongoTransactionService) markAwarded(ctx context.Context, t *models.Transaction) error {
	_, err := s.txCol.UpdateOne(
		ctx,
		bson.M{"_id": t.ID, "awardedTo": bson.M{"$all": bson.A{t.BorrowerID, t.LenderID}}},
		bson.M{"$set": bson.M{"pointsAwarded": true}},
	)
	return err
}

func (s *MongoTransactionService) Complete(ctx context.Context, callerID, id string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	// Completing claims both participants in the same write as the status
	// change, so concurrent callers find nothing left to pay.
	now := time.Now().UTC()
	res := s.txCol.FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":    id,
			"$or":    participantFilter(callerID),
			"status": bson.M{"$in": models.CompletableStatuses},
		},
		bson.A{bson.M{"$set": bson.M{
			"status":        models.TransactionStatusCompleted,
			"pointsAwarded": false,
			"awardedTo":     bson.A{"$borrower", "$lender"},
			"completedAt":   now,
			"updatedAt":     now,
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var completed models.Transaction
	err := res.Decode(&completed)
	if err == nil {
		if _, err := payAwards(ctx, s.users, s, &completed, completionAwards(&completed)); err != nil {
			return nil, false, err
		}
		if err := s.populate(ctx, &completed); err != nil {
			return nil, false, err
		}
		return &completed, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	// Nothing matched: work out why.
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !current.IsParticipant(callerID) {
		return nil, false, ErrForbidden
	}
	if current.Status != models.TransactionStatusCompleted {
		return nil, false, errCannotComplete()
	}

	// An earlier completion failed part way through its payout.
	paid := false
	if !current.PointsAwarded {
		var claimed []completionAward
		for _, a := range completionAwards(current) {
			ok, err := s.claimAward(ctx, current.ID, a.userID)
			if err != nil {
				return nil, false, err
			}
			if ok {
				claimed = append(claimed, a)
			}
		}
		if len(claimed) > 0 {
			if paid, err = payAwards(ctx, s.users, s, current, claimed); err != nil {
				return nil, false, err
			}
		}
	}

	if err := s.populate(ctx, current); err != nil {
		return nil, false, err
	}
	return current, paid, nil
}

func (s *MongoTransactionService) Rate(ctx context.Context, callerID, id string, req *models.RateTransactionRequest) (*models.Transaction, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.RatingFor == models.RatingForLender {
		filter["borrower"] = callerID
		set["ratingLender"] = req.Rating
		set["reviewLender"] = req.Review
	} else {
		filter["lender"] = callerID
		set["ratingBorrower"] = req.Rating
		set["reviewBorrower"] = req.Review
	}

	res := s.txCol.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Transaction
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ownershipError(ctx, s.txCol, id, ErrTransactionNotFound)
		}
		return nil, err
	}

	if err := s.populate(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
