package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
)

var ErrUserNotFound = errors.New("user not found")

type productDoc struct {
	Name     string        `bson:"name"`
	Price    bson.RawValue `bson:"price"`
	Image    string        `bson:"image"`
	Category string        `bson:"category"`
	Stock    int           `bson:"stock"`
}

type userDoc struct {
	Username  string `bson:"username"`
	Email     string `bson:"email"`
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName"`
}

// MongoCatalog reads products and storefront users. It never writes.
type MongoCatalog struct {
	products *mongo.Collection
	users    *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{
		products: db.Collection(productsCollection),
		users:    db.Collection(usersCollection),
	}
}

func (c *MongoCatalog) FindProduct(ctx context.Context, ref string) (*domain.Product, error) {
	var doc productDoc
	err := c.products.FindOne(ctx, idFilter(ref)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	price, err := decodePrice(doc.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", ref, err)
	}

	return &domain.Product{
		ID:       ref,
		Name:     doc.Name,
		Price:    price,
		Image:    doc.Image,
		Category: doc.Category,
		Stock:    doc.Stock,
	}, nil
}

func (c *MongoCatalog) FindUser(ctx context.Context, id string) (*domain.User, error) {
	var doc userDoc
	err := c.users.FindOne(ctx, idFilter(id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &domain.User{
		ID:        id,
		Username:  doc.Username,
		Email:     doc.Email,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
	}, nil
}

// idFilter matches ObjectID keys written by the storefront UI as well as
// plain string keys used by seed data.
func idFilter(ref string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, ref}}}
	}
	return bson.M{"_id": ref}
}

func decodePrice(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bsontype.Double:
		return decimal.NewFromFloat(v.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(v.Int64()), nil
	case bsontype.Decimal128:
		return decimal.NewFromString(v.Decimal128().String())
	case bsontype.String:
		return decimal.NewFromString(v.StringValue())
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %s", v.Type)
	}
}
