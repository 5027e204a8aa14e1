package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Миграция ролей: пользователи без роли становятся citizen,
// у пользователей со специализацией роль меняется на authority
func main() {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("DATABASE_NAME")
	if dbName == "" {
		dbName = "reportes_viales"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(ctx)

	collection := client.Database(dbName).Collection("users")

	// Пользователи без роли получают citizen
	result, err := collection.UpdateMany(
		ctx,
		bson.M{
			"$or": []bson.M{
				{"role": bson.M{"$exists": false}},
				{"role": ""},
			},
		},
		bson.M{
			"$set": bson.M{"role": "citizen"},
		},
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Назначена роль citizen для %d пользователей\n", result.ModifiedCount)

	// Пользователи со специализацией — это authority
	result, err = collection.UpdateMany(
		ctx,
		bson.M{
			"role":      "citizen",
			"specialty": bson.M{"$exists": true, "$ne": ""},
		},
		bson.M{
			"$set": bson.M{"role": "authority"},
		},
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Назначена роль authority для %d пользователей\n", result.ModifiedCount)
}
