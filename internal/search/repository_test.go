// internal/search/repository_test.go
package search

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(name, description string) Document {
	return Document{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		ReleaseDate: time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC),
		Price:       decimal.NewFromInt(100),
		Discount:    10,
		Value:       decimal.NewFromInt(90),
	}
}

func assertSameDocument(t *testing.T, want Document, got *Document) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.True(t, want.ReleaseDate.Equal(got.ReleaseDate))
	assert.True(t, want.Price.Equal(got.Price), "price %s != %s", want.Price, got.Price)
	assert.Equal(t, want.Discount, got.Discount)
	assert.True(t, want.Value.Equal(got.Value), "value %s != %s", want.Value, got.Value)
	assert.Equal(t, want.Removed, got.Removed)
}

func names(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

// testRepositoryContract exercises the behaviour every Repository shares.
// newRepo must return an empty store.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("misses are empty, not errors", func(t *testing.T) {
		repo := newRepo(t)
		doc, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, doc)

		doc, err = repo.GetByName(ctx, "Nothing")
		require.NoError(t, err)
		assert.Nil(t, doc)

		docs, err := repo.Search(ctx, "nothing", 0, 10)
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)
	})

	t.Run("upsert overwrites the whole document", func(t *testing.T) {
		repo := newRepo(t)
		doc := testDocument("Alpha", "first")
		require.NoError(t, repo.Upsert(ctx, doc))
		require.NoError(t, repo.Upsert(ctx, doc))

		doc.Description = ""
		doc.Removed = true
		doc.Price = decimal.RequireFromString("12.50")
		require.NoError(t, repo.Upsert(ctx, doc))

		got, err := repo.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assertSameDocument(t, doc, got)

		all, err := repo.List(ctx, 0, 10)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("get by exact name", func(t *testing.T) {
		repo := newRepo(t)
		doc := testDocument("Alpha", "")
		require.NoError(t, repo.Upsert(ctx, doc))

		got, err := repo.GetByName(ctx, "Alpha")
		require.NoError(t, err)
		assertSameDocument(t, doc, got)

		got, err = repo.GetByName(ctx, "alpha")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list pages by name", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.BulkUpsert(ctx, []Document{
			testDocument("Delta", ""),
			testDocument("Alpha", ""),
			testDocument("Charlie", ""),
			testDocument("Bravo", ""),
		}))

		first, err := repo.List(ctx, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "Bravo"}, names(first))

		second, err := repo.List(ctx, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"Charlie", "Delta"}, names(second))

		past, err := repo.List(ctx, 10, 2)
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("search ORs prefix terms across fields", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.BulkUpsert(ctx, []Document{
			testDocument("Alpha Centauri", "space strategy"),
			testDocument("Beta Racer", "fast cars"),
			testDocument("Gamma", "puzzle"),
		}))

		hits, err := repo.Search(ctx, "alp", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha Centauri"}, names(hits))

		hits, err = repo.Search(ctx, "strat", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha Centauri"}, names(hits))

		hits, err = repo.Search(ctx, "puzzle racer", 0, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Beta Racer", "Gamma"}, names(hits))

		hits, err = repo.Search(ctx, "eta rac", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Beta Racer"}, names(hits))

		hits, err = repo.Search(ctx, "  ", 0, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)

		hits, err = repo.Search(ctx, "puzzle racer", 1, 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepositoryContract(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

// setupTestDB connects to the test database and skips when it is unreachable.
func setupTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	getenv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable connect_timeout=2",
		getenv("PGHOST", "localhost"), getenv("PGPORT", "5432"), getenv("PGUSER", "user"),
		getenv("PGPASSWORD", "password"), getenv("PGDATABASE", "testdb"))

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping postgres tests: could not connect to postgres: %v", err)
	}
	if err := NewPostgresRepository(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

func TestPostgresRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	testRepositoryContract(t, func(t *testing.T) Repository {
		_, err := db.Exec(`TRUNCATE game_documents`)
		require.NoError(t, err)
		return NewPostgresRepository(db)
	})
}

func TestNormalizePage(t *testing.T) {
	offset, limit := NormalizePage(-3, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultPageSize, limit)

	_, limit = NormalizePage(0, 10_000)
	assert.Equal(t, MaxPageSize, limit)
}
