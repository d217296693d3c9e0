package infrastructure

import (
	"database/sql"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) SaveAll(accounts []domain.Account) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, account := range accounts {
		_, err := tx.Exec(
			`INSERT INTO accounts
			(id, item_id, user_id, external_account_id, name, type, subtype, current_balance, available_balance, hidden)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (item_id, external_account_id) DO UPDATE SET
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				subtype = EXCLUDED.subtype,
				current_balance = EXCLUDED.current_balance,
				available_balance = EXCLUDED.available_balance`,
			account.ID, account.ItemID, account.UserID, account.ExternalAccountID,
			account.Name, account.Type, account.Subtype,
			account.CurrentBalance, account.AvailableBalance, account.Hidden,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *AccountRepository) FindByUser(userID string) ([]domain.Account, error) {
	rows, err := r.db.Query(
		`SELECT id, item_id, user_id, external_account_id, name, type, subtype,
		        current_balance, available_balance, hidden
		 FROM accounts WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *AccountRepository) FindByItem(itemID string) ([]domain.Account, error) {
	rows, err := r.db.Query(
		`SELECT id, item_id, user_id, external_account_id, name, type, subtype,
		        current_balance, available_balance, hidden
		 FROM accounts WHERE item_id = $1 ORDER BY created_at`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]domain.Account, error) {
	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.ItemID, &account.UserID, &account.ExternalAccountID,
			&account.Name, &account.Type, &account.Subtype,
			&account.CurrentBalance, &account.AvailableBalance, &account.Hidden); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) SetHidden(accountID, userID string, hidden bool) error {
	_, err := r.db.Exec(
		`UPDATE accounts SET hidden = $1 WHERE id = $2 AND user_id = $3`,
		hidden, accountID, userID,
	)
	return err
}

func (r *AccountRepository) UpdateBalances(itemID string, balances []domain.AccountBalance) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, balance := range balances {
		_, err := tx.Exec(
			`UPDATE accounts SET current_balance = $1, available_balance = $2
			 WHERE item_id = $3 AND external_account_id = $4`,
			balance.CurrentBalance, balance.AvailableBalance, itemID, balance.ExternalAccountID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
