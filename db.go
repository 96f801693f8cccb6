package main

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rpupo63/round/config"
	"github.com/rpupo63/round/errs"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// gormLogWriter routes gorm's log lines into zerolog.
type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...any) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// openDatabase connects according to DB_TYPE and registers a read replica
// when DB_REPLICA_DSN is set.
func openDatabase(cfg map[string]string) (*gorm.DB, error) {
	dbType := config.GetString(cfg, "DB_TYPE", "")

	var dialector gorm.Dialector
	switch dbType {
	case "supa":
		connStr := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
			config.GetString(cfg, "SUPABASE_DB_HOST", ""),
			config.GetString(cfg, "SUPABASE_DB_USER", ""),
			config.GetString(cfg, "SUPABASE_DB_PASSWORD", ""),
			config.GetString(cfg, "SUPABASE_DB_NAME", ""),
			config.GetString(cfg, "SUPABASE_DB_PORT", "5432"),
		)
		log.Info().Msg("Connecting to Supabase database...")
		dialector = postgres.New(postgres.Config{DSN: connStr, PreferSimpleProtocol: true})
	case "postgres":
		dsn := config.GetString(cfg, "DATABASE_URL", "")
		if dsn == "" {
			return nil, errs.NewEnvironmentVariableError("DATABASE_URL")
		}
		log.Info().Msg("Connecting to Postgres database...")
		dialector = postgres.Open(dsn)
	case "sqlite":
		path := config.GetString(cfg, "SQLITE_PATH", "round.db")
		log.Info().Str("path", path).Msg("Opening SQLite database...")
		dialector = sqlite.Open(path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	default:
		return nil, errs.NewConfigError("DB_TYPE", fmt.Errorf("unsupported DB_TYPE %q, want supa, postgres or sqlite", dbType))
	}

	gormLogger := logger.New(gormLogWriter{}, logger.Config{
		SlowThreshold:             10 * time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:    false,
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errs.NewDatabaseError("connect", "database", err)
	}

	if dbType == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errs.NewDatabaseError("connect", "database", err)
		}
		// SQLite allows one writer; a single connection queues transactions.
		sqlDB.SetMaxOpenConns(1)
	} else if replica := config.GetString(cfg, "DB_REPLICA_DSN", ""); replica != "" {
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(replica)},
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, errs.NewDatabaseError("register replica", "database", err)
		}
		log.Info().Msg("Read replica registered")
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, errs.NewDatabaseError("test connection", "database", err)
	}
	return db, nil
}
