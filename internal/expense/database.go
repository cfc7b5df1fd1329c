package expense

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	expenseBucketName = "expenses"
	tripBucketName    = "trips"
	receiptBucketName = "receipts"
	reportBucketName  = "reports"
)

// DB defines the interface for database operations
type DB interface {
	// SaveExpense saves an expense to the database
	SaveExpense(expense *Expense) error

	// GetExpense retrieves an expense by ID
	GetExpense(id uuid.UUID) (*Expense, error)

	// ListExpenses returns all expenses
	ListExpenses() ([]*Expense, error)

	// DeleteExpense removes an expense from the database
	DeleteExpense(id uuid.UUID) error

	// SaveTrip saves a trip to the database
	SaveTrip(trip *Trip) error

	// GetTrip retrieves a trip by ID
	GetTrip(id uuid.UUID) (*Trip, error)

	// ListTrips returns all trips
	ListTrips() ([]*Trip, error)

	// DeleteTrip removes a trip and all receipts it owns
	DeleteTrip(id uuid.UUID) error

	// SaveReceipt saves a trip receipt to the database
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a trip receipt by ID
	GetReceipt(id uuid.UUID) (*Receipt, error)

	// ListTripReceipts returns the receipts owned by a trip
	ListTripReceipts(tripID uuid.UUID) ([]*Receipt, error)

	// DeleteReceipt removes a trip receipt from the database
	DeleteReceipt(id uuid.UUID) error

	// SaveReport saves a report to the database
	SaveReport(rep *Report) error

	// GetReport retrieves a report by ID
	GetReport(id uuid.UUID) (*Report, error)

	// ListReports returns all reports
	ListReports() ([]*Report, error)

	// DeleteReport removes a report from the database
	DeleteReport(id uuid.UUID) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{expenseBucketName, tripBucketName, receiptBucketName, reportBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func putJSON(tx *bbolt.Tx, bucket string, id uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s record: %w", bucket, err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(id.String()), data)
}

// SaveExpense saves an expense to the database
func (b *BoltDB) SaveExpense(expense *Expense) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, expenseBucketName, expense.ID, expense)
	})
}

// GetExpense retrieves an expense by ID
func (b *BoltDB) GetExpense(id uuid.UUID) (*Expense, error) {
	var expense *Expense
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(expenseBucketName)).Get([]byte(id.String()))
		if data == nil {
			return fmt.Errorf("expense not found: %s", id)
		}
		return json.Unmarshal(data, &expense)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpenses returns all expenses
func (b *BoltDB) ListExpenses() ([]*Expense, error) {
	expenses := make([]*Expense, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucketName)).ForEach(func(k, v []byte) error {
			var expense Expense
			if err := json.Unmarshal(v, &expense); err != nil {
				return fmt.Errorf("unmarshaling expense: %w", err)
			}
			expenses = append(expenses, &expense)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// DeleteExpense removes an expense from the database
func (b *BoltDB) DeleteExpense(id uuid.UUID) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucketName)).Delete([]byte(id.String()))
	})
}

// SaveTrip saves a trip to the database
func (b *BoltDB) SaveTrip(trip *Trip) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, tripBucketName, trip.ID, trip)
	})
}

// GetTrip retrieves a trip by ID
func (b *BoltDB) GetTrip(id uuid.UUID) (*Trip, error) {
	var trip *Trip
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(tripBucketName)).Get([]byte(id.String()))
		if data == nil {
			return fmt.Errorf("trip not found: %s", id)
		}
		return json.Unmarshal(data, &trip)
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// ListTrips returns all trips
func (b *BoltDB) ListTrips() ([]*Trip, error) {
	trips := make([]*Trip, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tripBucketName)).ForEach(func(k, v []byte) error {
			var trip Trip
			if err := json.Unmarshal(v, &trip); err != nil {
				return fmt.Errorf("unmarshaling trip: %w", err)
			}
			trips = append(trips, &trip)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

// DeleteTrip removes a trip and cascades to the receipts it owns, all in
// one transaction.
func (b *BoltDB) DeleteTrip(id uuid.UUID) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		receipts := tx.Bucket([]byte(receiptBucketName))
		var owned [][]byte
		err := receipts.ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			if receipt.TripID == id {
				key := make([]byte, len(k))
				copy(key, k)
				owned = append(owned, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range owned {
			if err := receipts.Delete(key); err != nil {
				return err
			}
		}
		return tx.Bucket([]byte(tripBucketName)).Delete([]byte(id.String()))
	})
}

// SaveReceipt saves a trip receipt to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, receiptBucketName, receipt.ID, receipt)
	})
}

// GetReceipt retrieves a trip receipt by ID
func (b *BoltDB) GetReceipt(id uuid.UUID) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucketName)).Get([]byte(id.String()))
		if data == nil {
			return fmt.Errorf("receipt not found: %s", id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListTripReceipts returns the receipts owned by a trip, in key order.
func (b *BoltDB) ListTripReceipts(tripID uuid.UUID) ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucketName)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			if receipt.TripID == tripID {
				receipts = append(receipts, &receipt)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a trip receipt from the database
func (b *BoltDB) DeleteReceipt(id uuid.UUID) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucketName)).Delete([]byte(id.String()))
	})
}

// SaveReport saves a report to the database
func (b *BoltDB) SaveReport(rep *Report) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, reportBucketName, rep.ID, rep)
	})
}

// GetReport retrieves a report by ID
func (b *BoltDB) GetReport(id uuid.UUID) (*Report, error) {
	var rep *Report
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(reportBucketName)).Get([]byte(id.String()))
		if data == nil {
			return fmt.Errorf("report not found: %s", id)
		}
		return json.Unmarshal(data, &rep)
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// ListReports returns all reports
func (b *BoltDB) ListReports() ([]*Report, error) {
	reports := make([]*Report, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportBucketName)).ForEach(func(k, v []byte) error {
			var rep Report
			if err := json.Unmarshal(v, &rep); err != nil {
				return fmt.Errorf("unmarshaling report: %w", err)
			}
			reports = append(reports, &rep)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// DeleteReport removes a report from the database
func (b *BoltDB) DeleteReport(id uuid.UUID) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportBucketName)).Delete([]byte(id.String()))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
