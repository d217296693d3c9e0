package infrastructure

import (
	"database/sql"
	"time"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, user_id, account_id, external_id, amount, merchant_name, description,
	date, pending, type, source, line_item_id, is_split, parent_id, excluded`

// UpsertBatch applies one added-delta page in a single transaction. The
// conflict key is (user_id, external_id), so replaying the same page after a
// crash or cursor re-delivery updates rows in place instead of duplicating
// them. An existing category assignment is kept; the incoming rule-derived
// one only lands on rows that have none yet.
func (r *LedgerRepository) UpsertBatch(entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, entry := range entries {
		_, err := tx.Exec(
			`INSERT INTO ledger_entries (`+ledgerColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (user_id, external_id) WHERE external_id IS NOT NULL DO UPDATE SET
				account_id = EXCLUDED.account_id,
				amount = EXCLUDED.amount,
				merchant_name = EXCLUDED.merchant_name,
				description = EXCLUDED.description,
				date = EXCLUDED.date,
				pending = EXCLUDED.pending,
				type = EXCLUDED.type,
				line_item_id = COALESCE(ledger_entries.line_item_id, EXCLUDED.line_item_id),
				updated_at = now()`,
			entry.ID, entry.UserID, entry.AccountID, entry.ExternalID, entry.Amount,
			entry.MerchantName, entry.Description, entry.Date, entry.Pending,
			entry.Type, entry.Source, entry.LineItemID, entry.IsSplit, entry.ParentID, entry.Excluded,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateSyncedFields overwrites the aggregator-owned fields of existing
// entries by external id. Rows that no longer exist locally are skipped.
func (r *LedgerRepository) UpdateSyncedFields(userID string, fields []domain.SyncedFields) error {
	if len(fields) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range fields {
		_, err := tx.Exec(
			`UPDATE ledger_entries
			 SET amount = $1, merchant_name = $2, description = $3, date = $4, pending = $5, updated_at = now()
			 WHERE user_id = $6 AND external_id = $7`,
			f.Amount, f.MerchantName, f.Description, f.Date, f.Pending, userID, f.ExternalID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteByExternalIDs is unconditional: ids with no matching row are a no-op.
func (r *LedgerRepository) DeleteByExternalIDs(userID string, externalIDs []string) error {
	if len(externalIDs) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, externalID := range externalIDs {
		_, err := tx.Exec(
			`DELETE FROM ledger_entries WHERE user_id = $1 AND external_id = $2`,
			userID, externalID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *LedgerRepository) Save(entry domain.LedgerEntry) error {
	_, err := r.db.Exec(
		`INSERT INTO ledger_entries (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		entry.ID, entry.UserID, entry.AccountID, entry.ExternalID, entry.Amount,
		entry.MerchantName, entry.Description, entry.Date, entry.Pending,
		entry.Type, entry.Source, entry.LineItemID, entry.IsSplit, entry.ParentID, entry.Excluded,
	)
	return err
}

func (r *LedgerRepository) Update(entry domain.LedgerEntry) error {
	_, err := r.db.Exec(
		`UPDATE ledger_entries
		 SET amount = $1, merchant_name = $2, description = $3, date = $4, pending = $5,
		     type = $6, line_item_id = $7, excluded = $8, updated_at = now()
		 WHERE id = $9 AND user_id = $10`,
		entry.Amount, entry.MerchantName, entry.Description, entry.Date, entry.Pending,
		entry.Type, entry.LineItemID, entry.Excluded, entry.ID, entry.UserID,
	)
	return err
}

func (r *LedgerRepository) Delete(entryID, userID string) error {
	_, err := r.db.Exec(
		`DELETE FROM ledger_entries WHERE id = $1 AND user_id = $2`,
		entryID, userID,
	)
	return err
}

func (r *LedgerRepository) FindByID(entryID, userID string) (*domain.LedgerEntry, error) {
	row := r.db.QueryRow(
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1 AND user_id = $2`,
		entryID, userID,
	)
	entry, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, budgetErrors.ErrEntryNotFound
	}
	return entry, err
}

// FindTopLevelByUser lists entries for the ledger screen. Split children are
// excluded here; they only appear when a split is expanded via FindChildren.
func (r *LedgerRepository) FindTopLevelByUser(userID string, startDate, endDate time.Time) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE user_id = $1 AND parent_id IS NULL AND date >= $2 AND date <= $3
		 ORDER BY date DESC, created_at DESC`,
		userID, startDate, endDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

func (r *LedgerRepository) FindChildren(parentID, userID string) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE parent_id = $1 AND user_id = $2 ORDER BY created_at`,
		parentID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

// FindExpensesSince feeds recurrence detection. Split children are excluded:
// the parent row keeps the amount the bank actually charged, while the
// children carry arbitrary user-chosen partitions of it.
func (r *LedgerRepository) FindExpensesSince(userID string, since time.Time) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE user_id = $1 AND type = 'expense' AND date >= $2 AND merchant_name <> ''
		   AND parent_id IS NULL
		 ORDER BY date`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

func (r *LedgerRepository) FindInDateRange(userID string, startDate, endDate time.Time) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(
		`SELECT `+ledgerColumns+` FROM ledger_entries
		 WHERE user_id = $1 AND date >= $2 AND date <= $3
		 ORDER BY date`,
		userID, startDate, endDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLedgerEntries(rows)
}

// ApplySplit flips the parent into a pure grouping record and creates its
// children in one transaction, so a failed split never leaves partial state.
func (r *LedgerRepository) ApplySplit(parent domain.LedgerEntry, children []domain.LedgerEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE ledger_entries SET is_split = TRUE, line_item_id = NULL, updated_at = now()
		 WHERE id = $1 AND user_id = $2`,
		parent.ID, parent.UserID,
	)
	if err != nil {
		return err
	}

	for _, child := range children {
		_, err := tx.Exec(
			`INSERT INTO ledger_entries (`+ledgerColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			child.ID, child.UserID, child.AccountID, child.ExternalID, child.Amount,
			child.MerchantName, child.Description, child.Date, child.Pending,
			child.Type, child.Source, child.LineItemID, child.IsSplit, child.ParentID, child.Excluded,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanLedgerEntry(row interface{ Scan(dest ...interface{}) error }) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := row.Scan(&entry.ID, &entry.UserID, &entry.AccountID, &entry.ExternalID, &entry.Amount,
		&entry.MerchantName, &entry.Description, &entry.Date, &entry.Pending,
		&entry.Type, &entry.Source, &entry.LineItemID, &entry.IsSplit, &entry.ParentID, &entry.Excluded)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func collectLedgerEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
