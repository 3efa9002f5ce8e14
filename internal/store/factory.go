package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// NewFromConfig returns the store and user directory for driver. db is
// only used, and then required, by the mongo driver.
func NewFromConfig(driver string, db *mongo.Database) (PotholeStore, UserDirectory, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), NewMemoryUserDirectory(), nil
	case DriverMongo:
		if db == nil {
			return nil, nil, fmt.Errorf("mongo store requires a connected database")
		}
		return NewMongoStore(db), NewMongoUserDirectory(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}
