package models

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

/*
Query generation and column report.

`round generate` migrates every model, prints a report of database columns
that no model field maps to, then writes gorm/gen query helpers to
./generated. Running it against a live database that drifted from the models
shows the drift before it bites:

	=== COLUMN MISMATCH REPORT ===
	--- Table: issues ---
	Found 1 columns not accounted for in model:
	  - legacy_rank
*/

// All returns one zero value of every persisted model, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Session{},
		&Account{},
		&Project{},
		&ProjectMember{},
		&Issue{},
		&ProjectInvitation{},
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}

// GenerateModels migrates the schema, reports column drift and writes the
// query helpers.
func GenerateModels(db *gorm.DB, outPath string) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	verbose := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)
	migrateDB := db.Session(&gorm.Session{
		Logger:                 verbose,
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	if outPath == "" {
		outPath = "./generated"
	}
	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(migrateDB)
	g.ApplyBasic(All()...)

	fmt.Println("Migrating models...")
	if err := Migrate(migrateDB); err != nil {
		return fmt.Errorf("migrating models: %w", err)
	}

	GenerateColumnMismatchReport(db)

	g.Execute()
	fmt.Println("Model generation complete!")
	return nil
}

// GenerateColumnMismatchReport prints, per table, the columns that exist in
// the database but have no model field.
func GenerateColumnMismatchReport(db *gorm.DB) int {
	fmt.Println("=== COLUMN MISMATCH REPORT ===")

	totalMismatches := 0
	for _, model := range All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			fmt.Printf("Error parsing model %T: %v\n", model, err)
			continue
		}
		tableName := stmt.Schema.Table
		fmt.Printf("\n--- Table: %s ---\n", tableName)

		dbColumns, err := getTableColumns(db, tableName)
		if err != nil {
			if strings.Contains(err.Error(), "does not exist") {
				fmt.Println("Table does not exist yet (will be created during migration)")
			} else {
				fmt.Printf("Error getting columns for table %s: %v\n", tableName, err)
			}
			continue
		}

		mismatches := findColumnMismatches(dbColumns, getModelFields(stmt.Schema))
		if len(mismatches) > 0 {
			fmt.Printf("Found %d columns not accounted for in model:\n", len(mismatches))
			for _, col := range mismatches {
				fmt.Printf("  - %s\n", col)
			}
			totalMismatches += len(mismatches)
		} else {
			fmt.Println("All columns are accounted for in the model.")
		}
	}

	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Total mismatched columns across all tables: %d\n", totalMismatches)
	return totalMismatches
}

func getTableColumns(db *gorm.DB, tableName string) ([]string, error) {
	if !db.Migrator().HasTable(tableName) {
		return nil, fmt.Errorf("table %s does not exist", tableName)
	}
	columnTypes, err := db.Migrator().ColumnTypes(tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	columns := make([]string, 0, len(columnTypes))
	for _, ct := range columnTypes {
		columns = append(columns, ct.Name())
	}
	return columns, nil
}

// getModelFields lists the column names the parsed schema maps.
// Relationship fields have no column and are not in DBNames.
func getModelFields(s *schema.Schema) []string {
	return append([]string(nil), s.DBNames...)
}

func findColumnMismatches(dbColumns, modelFields []string) []string {
	modelFieldSet := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		modelFieldSet[field] = true
	}

	var mismatches []string
	for _, col := range dbColumns {
		if !modelFieldSet[col] {
			mismatches = append(mismatches, col)
		}
	}
	return mismatches
}
