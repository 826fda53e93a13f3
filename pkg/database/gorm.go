package database

import (
	"fmt"
	"time"

	"social_match_service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewGormConnection create a gorm handle over postgreSQL
func NewGormConnection(d Connection) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < d.RetryCount; i++ {
		db, err = gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			break
		}
		logger.Log.Warn(
			"Failed to open gorm postgreSQL connection, retrying...",
			zap.Int("attempt", i+1),
			zap.String("address", fmt.Sprintf("[%s]", d.ConnectStr)),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return db, err
}
