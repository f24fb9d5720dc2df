package services

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// findOneAndUpdateReturnAfter is shorthand for the option every conditional
// read-modify-write in this package uses.
func findOneAndUpdateReturnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// findSortedDesc returns find options sorting newest-first on the given field.
func findSortedDesc(field string) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: -1}})
}

// findSortedAsc returns find options sorting oldest-first on the given field.
func findSortedAsc(field string) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: 1}})
}
