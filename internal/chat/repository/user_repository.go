package repository

import (
	"context"

	"pluto_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository definition user persistence.
// FindByUsername returns (nil, nil) when the user is absent.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
}

type userRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository create a UserRepository over the users collection
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		coll: db.Collection("users"),
	}
}

// FindByUsername find user by normalized username
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"_id": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Save upsert user by username
func (r *userRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	filter := bson.M{"_id": user.Username}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, filter, user, opts); err != nil {
		return nil, err
	}
	return user, nil
}
