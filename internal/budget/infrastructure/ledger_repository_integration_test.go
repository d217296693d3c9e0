//go:build integration

package infrastructure

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	database "github.com/mzielinski/BudgetSync/db"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("budgetsync_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

func seedUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	userID := uuid.NewString()
	_, err := db.Exec(`INSERT INTO users (id, email) VALUES ($1, $2)`, userID, userID+"@example.com")
	require.NoError(t, err)
	return userID
}

func syncedEntry(userID, externalID string, amount int64) domain.LedgerEntry {
	ext := externalID
	return domain.LedgerEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		ExternalID:   &ext,
		Amount:       amount,
		MerchantName: "Coffee Place",
		Date:         time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		Type:         domain.EntryTypeExpense,
		Source:       domain.SourcePlaid,
	}
}

func TestUpsertBatch_ReplayKeepsRowAndCategory(t *testing.T) {
	db := startPostgres(t)
	repo := NewLedgerRepository(db)
	userID := seedUser(t, db)

	first := syncedEntry(userID, "tx-1", 1250)
	require.NoError(t, repo.UpsertBatch([]domain.LedgerEntry{first}))

	// Simulate a user categorization between sync passes.
	budgetID, groupID, lineItemID := uuid.NewString(), uuid.NewString(), uuid.NewString()
	_, err := db.Exec(`INSERT INTO budgets (id, user_id, month) VALUES ($1, $2, '2026-08-01')`, budgetID, userID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO category_groups (id, budget_id, name) VALUES ($1, $2, 'Essentials')`, groupID, budgetID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO line_items (id, group_id, name) VALUES ($1, $2, 'Coffee')`, lineItemID, groupID)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE ledger_entries SET line_item_id = $1 WHERE id = $2`, lineItemID, first.ID)
	require.NoError(t, err)

	// Replay the same provider transaction with a fresh row id and an updated
	// amount, as a crashed-and-restarted sync would.
	replay := syncedEntry(userID, "tx-1", 1300)
	require.NoError(t, repo.UpsertBatch([]domain.LedgerEntry{replay}))

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM ledger_entries WHERE user_id = $1`, userID).Scan(&count))
	assert.Equal(t, 1, count)

	entry, err := repo.FindByID(first.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1300), entry.Amount)
	assert.NotNil(t, entry.LineItemID)
	assert.Equal(t, lineItemID, *entry.LineItemID)
}

func TestUpsertBatch_ManualEntriesNeverCollide(t *testing.T) {
	db := startPostgres(t)
	repo := NewLedgerRepository(db)
	userID := seedUser(t, db)

	for i := 0; i < 2; i++ {
		entry := domain.LedgerEntry{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       5000,
			MerchantName: "Cash",
			Date:         time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			Type:         domain.EntryTypeExpense,
			Source:       domain.SourceManual,
		}
		require.NoError(t, repo.Save(entry))
	}

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM ledger_entries WHERE user_id = $1`, userID).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestDeleteByExternalIDs_IgnoresUnknownIDs(t *testing.T) {
	db := startPostgres(t)
	repo := NewLedgerRepository(db)
	userID := seedUser(t, db)

	require.NoError(t, repo.UpsertBatch([]domain.LedgerEntry{syncedEntry(userID, "tx-1", 1250)}))
	require.NoError(t, repo.DeleteByExternalIDs(userID, []string{"tx-1", "tx-unknown"}))

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM ledger_entries WHERE user_id = $1`, userID).Scan(&count))
	assert.Equal(t, 0, count)
}
