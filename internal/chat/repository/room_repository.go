package repository

import (
	"context"

	"pluto_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomRepository definition room persistence.
// FindByRoomID returns (nil, nil) when the room is absent; absence is not an error here,
// callers decide whether it is a failure.
type RoomRepository interface {
	FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error)
	FindAllByRoomIDIn(ctx context.Context, roomIDs []string) ([]*domain.Room, error)
	Save(ctx context.Context, room *domain.Room) (*domain.Room, error)
}

type roomRepository struct {
	coll *mongo.Collection
}

// NewMongoRoomRepository create a RoomRepository over the rooms collection
func NewMongoRoomRepository(db *mongo.Database) RoomRepository {
	return &roomRepository{
		coll: db.Collection("rooms"),
	}
}

// FindByRoomID find room by normalized room id
func (r *roomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.coll.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindAllByRoomIDIn find the subset of rooms that exist; missing ids are omitted
func (r *roomRepository) FindAllByRoomIDIn(ctx context.Context, roomIDs []string) ([]*domain.Room, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": roomIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*domain.Room
	for cursor.Next(ctx) {
		var room domain.Room
		if err := cursor.Decode(&room); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	return rooms, cursor.Err()
}

// Save upsert room by its identity
func (r *roomRepository) Save(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	filter := bson.M{"_id": room.RoomID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, filter, room, opts); err != nil {
		return nil, err
	}
	return room, nil
}
