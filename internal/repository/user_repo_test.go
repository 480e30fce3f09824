package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"Copilot/internal/domain/models"
	domrepo "Copilot/internal/domain/repository"
	"Copilot/pkg/postgres"
)

func testUserRepository(t *testing.T, repo domrepo.UserRepository, suffix string) {
	t.Helper()
	ctx := context.Background()
	name := func(s string) string { return s + suffix }
	email := func(s string) string { return s + suffix + "@example.com" }

	alice, err := repo.Create(ctx, &models.User{Username: name("alice"), Email: email("shared"), PasswordHash: "h1", IsActive: true})
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if alice.ID == 0 || alice.DateJoined.IsZero() {
		t.Fatalf("expected id and join date, got %+v", alice)
	}
	if _, err := repo.Create(ctx, &models.User{Username: name("alice"), PasswordHash: "x", IsActive: true}); !errors.Is(err, domrepo.ErrDuplicateUsername) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	bob, err := repo.Create(ctx, &models.User{Username: name("bob"), Email: email("shared"), PasswordHash: "h2", IsActive: true})
	if err != nil {
		t.Fatalf("unverified e-mail may be shared: %v", err)
	}

	got, err := repo.GetByUsername(ctx, name("alice"))
	if err != nil || got.ID != alice.ID {
		t.Fatalf("get by username: %v %+v", err, got)
	}
	if _, err := repo.GetByID(ctx, 1<<40); !errors.Is(err, domrepo.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	verified, err := repo.IsEmailVerified(ctx, email("shared"))
	if err != nil || verified {
		t.Fatalf("expected unverified, got %v %v", verified, err)
	}
	if err := repo.MarkEmailVerified(ctx, alice.ID, email("shared")); err != nil {
		t.Fatalf("verify alice: %v", err)
	}
	if err := repo.MarkEmailVerified(ctx, bob.ID, email("shared")); !errors.Is(err, domrepo.ErrEmailTaken) {
		t.Fatalf("expected e-mail taken, got %v", err)
	}
	primary, err := repo.PrimaryEmail(ctx, alice.ID)
	if err != nil || !primary.Verified || !primary.Primary {
		t.Fatalf("unexpected primary e-mail %+v %v", primary, err)
	}

	users, err := repo.ListByEmail(ctx, email("SHARED"))
	if err != nil || len(users) != 2 {
		t.Fatalf("expected both accounts by e-mail, got %d %v", len(users), err)
	}

	if err := repo.UpdatePassword(ctx, alice.ID, "h3"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	if err := repo.TouchLastLogin(ctx, alice.ID, now); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, _ = repo.GetByID(ctx, alice.ID)
	if got.PasswordHash != "h3" || got.LastLogin == nil || !got.LastLogin.Equal(now) {
		t.Fatalf("unexpected user after update %+v", got)
	}

	if err := repo.Delete(ctx, bob.ID); err != nil {
		t.Fatalf("delete bob: %v", err)
	}
	if _, err := repo.GetByUsername(ctx, name("bob")); !errors.Is(err, domrepo.ErrUserNotFound) {
		t.Fatalf("expected bob gone, got %v", err)
	}
	if _, err := repo.PrimaryEmail(ctx, bob.ID); !errors.Is(err, domrepo.ErrUserNotFound) {
		t.Fatalf("expected bob's e-mail gone, got %v", err)
	}
	if err := repo.Delete(ctx, bob.ID); !errors.Is(err, domrepo.ErrUserNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := repo.Create(ctx, &models.User{Username: name("bob"), Email: email("shared"), PasswordHash: "h4", IsActive: true}); err != nil {
		t.Fatalf("username must be free after delete: %v", err)
	}
}

func TestMemoryUserRepo(t *testing.T) {
	testUserRepository(t, NewMemoryUserRepo(), "")
}

func TestPostgresUserRepo(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := postgres.Migrate(ctx, pool, UserSchema); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	testUserRepository(t, NewUserRepo(pool), fmt.Sprintf("_%d", time.Now().UnixNano()))
}
