package receipt

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// receiptRow maps a Record onto the receipts table columns
type receiptRow struct {
	VendorName    string `gorm:"column:Vendor_Name"`
	TransactionID string `gorm:"column:Transaction_ID"`
	TotalAmount   string `gorm:"column:Total_Amount"`
	Timestamp     string `gorm:"column:Timestamp"`
}

func (receiptRow) TableName() string {
	return bucketName
}

func toRow(record Record) receiptRow {
	return receiptRow{
		VendorName:    record.VendorName,
		TransactionID: record.TransactionID,
		TotalAmount:   record.TotalAmount,
		Timestamp:     record.Timestamp,
	}
}

// PostgresStore inserts records directly into the receipts table of a Postgres database
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects with a DSN such as the Supabase connection string.
// The table is expected to exist.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres DSN", ErrMissingStoreConfig)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Insert adds one row
func (p *PostgresStore) Insert(ctx context.Context, record Record) error {
	row := toRow(record)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting receipt: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
