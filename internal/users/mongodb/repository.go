// Package mongodb implements the users repository on top of MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/user-registry/internal/domain"
	"github.com/bissquit/user-registry/internal/users"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the collection user documents live in.
const DefaultCollection = "users"

const usernameIndexName = "username_unique"

type preferencesDocument struct {
	Timezone *string `bson:"timezone"`
}

type userDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Username    string              `bson:"username"`
	Password    string              `bson:"password"`
	Roles       []string            `bson:"roles"`
	Preferences preferencesDocument `bson:"preferences"`
	Active      bool                `bson:"active"`
	CreatedTS   float64             `bson:"created_ts"`
}

// Repository implements users.Repository for MongoDB.
type Repository struct {
	coll *mongo.Collection
}

// NewRepository creates a new MongoDB repository backed by coll.
func NewRepository(coll *mongo.Collection) *Repository {
	return &Repository{coll: coll}
}

// EnsureIndexes creates the unique username index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName(usernameIndexName).SetUnique(true),
	})
	if err != nil {
		return storeError("create username index", err)
	}
	return nil
}

// ListUsers returns all users in natural order.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, storeError("find users", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError("decode users", err)
	}

	list := make([]domain.User, 0, len(docs))
	for i := range docs {
		list = append(list, docs[i].toDomain())
	}
	return list, nil
}

// GetUserByUsername returns the user whose username equals the argument.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrUserNotFound
		}
		return nil, storeError("find user", err)
	}

	user := doc.toDomain()
	return &user, nil
}

// CreateUser inserts user and sets its ID.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	doc := fromDomain(user)

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrUsernameExists
		}
		return storeError("insert user", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	return nil
}

// UpdateUser sets the fields present in patch and returns the document after the update.
func (r *Repository) UpdateUser(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	set := patchToSet(patch)
	if len(set) == 0 {
		return r.GetUserByUsername(ctx, username)
	}

	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "username", Value: username}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrUserNotFound
		}
		return nil, storeError("update user", err)
	}

	user := doc.toDomain()
	return &user, nil
}

// DeleteUser removes the user and returns the number of deleted documents.
func (r *Repository) DeleteUser(ctx context.Context, username string) (int64, error) {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "username", Value: username}})
	if err != nil {
		return 0, storeError("delete user", err)
	}
	return res.DeletedCount, nil
}

// storeError wraps err with op. Network failures and timeouts additionally
// match users.ErrStoreUnavailable.
func storeError(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, users.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// patchToSet builds the $set document. Timezone is addressed by its dotted
// path so other preference keys survive.
func patchToSet(patch domain.UserPatch) bson.D {
	set := bson.D{}
	if patch.Password != nil {
		set = append(set, bson.E{Key: "password", Value: *patch.Password})
	}
	if patch.Roles != nil {
		roles := *patch.Roles
		if roles == nil {
			roles = make([]string, 0)
		}
		set = append(set, bson.E{Key: "roles", Value: roles})
	}
	if patch.Timezone.Set {
		set = append(set, bson.E{Key: "preferences.timezone", Value: patch.Timezone.Value})
	}
	if patch.Active != nil {
		set = append(set, bson.E{Key: "active", Value: *patch.Active})
	}
	return set
}

func fromDomain(user *domain.User) userDocument {
	roles := user.Roles
	if roles == nil {
		roles = make([]string, 0)
	}

	doc := userDocument{
		Username:    user.Username,
		Password:    user.Password,
		Roles:       roles,
		Preferences: preferencesDocument{Timezone: user.Preferences.Timezone},
		Active:      user.Active,
		CreatedTS:   user.CreatedTS,
	}
	if oid, err := primitive.ObjectIDFromHex(user.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d userDocument) toDomain() domain.User {
	roles := d.Roles
	if roles == nil {
		roles = make([]string, 0)
	}

	return domain.User{
		ID:          d.ID.Hex(),
		Username:    d.Username,
		Password:    d.Password,
		Roles:       roles,
		Preferences: domain.Preferences{Timezone: d.Preferences.Timezone},
		Active:      d.Active,
		CreatedTS:   d.CreatedTS,
	}
}
