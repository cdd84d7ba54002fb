package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed termcache.sql
var termCacheSQL string

// Function lists for verification
var TermCacheFunctions = []string{
	"init_term_cache",
	"upsert_term_cache",
	"select_term_cache",
	"delete_term_cache",
}

// LoadTermCacheSql loads term-cache-related SQL functions
func LoadTermCacheSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, TermCacheFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing term cache functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(termCacheSQL)
	if err != nil {
		return fmt.Errorf("error executing term cache SQL: %w", err)
	}

	exist, err := checkFunctions(db, TermCacheFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL term cache functions loaded successfully")
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
