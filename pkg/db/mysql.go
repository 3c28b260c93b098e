package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lora-console/pkg/model"
)

// Open connects to MySQL with dsn and migrates the session table.
// A missing database is created on first start.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		if !strings.Contains(err.Error(), "Unknown database") {
			return nil, err
		}
		if cerr := createDatabase(dsn); cerr != nil {
			return nil, fmt.Errorf("create database failed: %w", cerr)
		}
		if db, err = gorm.Open(mysql.Open(dsn), cfg); err != nil {
			return nil, err
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	if err := db.AutoMigrate(&model.Session{}); err != nil {
		return nil, err
	}
	return db, nil
}

func createDatabase(dsn string) error {
	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return err
	}
	name := parsed.DBName
	parsed.DBName = ""
	conn, err := sql.Open("mysql", parsed.FormatDSN())
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4", name))
	return err
}
