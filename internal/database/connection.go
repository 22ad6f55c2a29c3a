package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the readings database. The default backend is a local sqlite
// file (the deployment target is a single small board next to the sensor);
// DB_DRIVER=postgres switches to a server-backed store with the same schema.
func Connect() (*gorm.DB, error) {
	config, err := NewConfig()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case "postgres":
		dialector = postgres.Open(connectionString(*config))
	case "sqlite":
		dialector = sqlite.Open(config.Path)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SetMaxIdleConns sets the maximum number of connections in the idle connection pool.
	sqlDB.SetMaxIdleConns(3)
	// SetMaxOpenConns sets the maximum number of open connections to the database.
	sqlDB.SetMaxOpenConns(5)
	// SetConnMaxLifetime sets the maximum amount of time a connection may be reused.
	sqlDB.SetConnMaxLifetime(time.Minute)

	return db, nil
}

func connectionString(config envConfig) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=America/Sao_Paulo",
		config.Host, config.User, config.Password, config.DBName, config.Port)
}
