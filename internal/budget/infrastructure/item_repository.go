package infrastructure

import (
	"database/sql"
	"time"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type LinkedItemRepository struct {
	db *sql.DB
}

func NewLinkedItemRepository(db *sql.DB) *LinkedItemRepository {
	return &LinkedItemRepository{db: db}
}

const linkedItemColumns = `id, user_id, external_item_id, institution_id, institution_name,
	status, last_error_code, sync_cursor, consent_expires_at, last_synced_at`

func scanLinkedItem(row interface{ Scan(dest ...interface{}) error }) (*domain.LinkedItem, error) {
	var item domain.LinkedItem
	err := row.Scan(&item.ID, &item.UserID, &item.ExternalItemID, &item.InstitutionID,
		&item.InstitutionName, &item.Status, &item.LastErrorCode, &item.SyncCursor,
		&item.ConsentExpiresAt, &item.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *LinkedItemRepository) Save(item domain.LinkedItem) error {
	_, err := r.db.Exec(
		`INSERT INTO linked_items
		(id, user_id, external_item_id, institution_id, institution_name, status, last_error_code, sync_cursor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.UserID, item.ExternalItemID, item.InstitutionID,
		item.InstitutionName, item.Status, item.LastErrorCode, item.SyncCursor,
	)
	return err
}

func (r *LinkedItemRepository) FindByID(itemID, userID string) (*domain.LinkedItem, error) {
	row := r.db.QueryRow(
		`SELECT `+linkedItemColumns+` FROM linked_items WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	)
	item, err := scanLinkedItem(row)
	if err == sql.ErrNoRows {
		return nil, budgetErrors.ErrItemNotFound
	}
	return item, err
}

func (r *LinkedItemRepository) FindByExternalID(externalItemID string) (*domain.LinkedItem, error) {
	row := r.db.QueryRow(
		`SELECT `+linkedItemColumns+` FROM linked_items WHERE external_item_id = $1`,
		externalItemID,
	)
	item, err := scanLinkedItem(row)
	if err == sql.ErrNoRows {
		return nil, budgetErrors.ErrItemNotFound
	}
	return item, err
}

func (r *LinkedItemRepository) FindByUser(userID string) ([]domain.LinkedItem, error) {
	rows, err := r.db.Query(
		`SELECT `+linkedItemColumns+` FROM linked_items WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinkedItems(rows)
}

func (r *LinkedItemRepository) FindAllActive() ([]domain.LinkedItem, error) {
	rows, err := r.db.Query(
		`SELECT ` + linkedItemColumns + ` FROM linked_items WHERE status = 'active' ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinkedItems(rows)
}

func collectLinkedItems(rows *sql.Rows) ([]domain.LinkedItem, error) {
	var items []domain.LinkedItem
	for rows.Next() {
		item, err := scanLinkedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *LinkedItemRepository) UpdateCursor(itemID, cursor string) error {
	_, err := r.db.Exec(`UPDATE linked_items SET sync_cursor = $1 WHERE id = $2`, cursor, itemID)
	return err
}

func (r *LinkedItemRepository) UpdateStatus(itemID string, status domain.ItemStatus, errorCode string) error {
	_, err := r.db.Exec(
		`UPDATE linked_items SET status = $1, last_error_code = $2 WHERE id = $3`,
		status, errorCode, itemID,
	)
	return err
}

func (r *LinkedItemRepository) UpdateLastSynced(itemID string, syncedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE linked_items SET last_synced_at = $1 WHERE id = $2`, syncedAt, itemID)
	return err
}

func (r *LinkedItemRepository) UpdateConsentExpiry(itemID string, expiresAt time.Time) error {
	_, err := r.db.Exec(`UPDATE linked_items SET consent_expires_at = $1 WHERE id = $2`, expiresAt, itemID)
	return err
}
