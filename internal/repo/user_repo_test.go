package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Email: email, PasswordHash: "x", Role: role}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func TestCreateUser_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	err := CreateUser(context.Background(), db, &domain.User{Name: "n", Email: "e@x.com", PasswordHash: "h", Role: domain.RoleClient})
	if err == nil {
		t.Fatal("expected error creating without table")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	seedUser(t, db, "Ada", "ada@example.com", domain.RoleClient)

	err := CreateUser(context.Background(), db, &domain.User{Name: "Other", Email: "ada@example.com", PasswordHash: "x", Role: domain.RoleClient})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetUser_AndByEmail(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	u := seedUser(t, db, "Ada", "ada@example.com", domain.RoleAgentL1)

	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "ada@example.com" || got.Role != domain.RoleAgentL1 {
		t.Fatalf("unexpected user: %+v", got)
	}

	byEmail, err := GetUserByEmail(context.Background(), db, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("ID mismatch: %d vs %d", byEmail.ID, u.ID)
	}

	if _, err := GetUser(context.Background(), db, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUserByEmail(context.Background(), db, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAgents_ExcludesClients_OrdersByName(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	seedUser(t, db, "Zoe", "zoe@example.com", domain.RoleAgentL2)
	seedUser(t, db, "Ada", "ada@example.com", domain.RoleClient)
	seedUser(t, db, "Bob", "bob@example.com", domain.RoleAgentL1)
	seedUser(t, db, "Amy", "amy@example.com", domain.RoleAdmin)

	agents, err := ListAgents(context.Background(), db)
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	wantOrder := []string{"Amy", "Bob", "Zoe"}
	for i, w := range wantOrder {
		if agents[i].Name != w {
			t.Fatalf("agents[%d] = %q; want %q", i, agents[i].Name, w)
		}
	}
	for _, a := range agents {
		if a.Role == domain.RoleClient {
			t.Fatalf("client leaked into agent listing: %+v", a)
		}
	}
}

func TestUpdateUserProfile(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	u := seedUser(t, db, "Ada", "ada@example.com", domain.RoleClient)
	seedUser(t, db, "Bob", "bob@example.com", domain.RoleClient)

	if err := UpdateUserProfile(context.Background(), db, u.ID, "Ada L", "ada.l@example.com", domain.RoleAgentL1); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	got, _ := GetUser(context.Background(), db, u.ID)
	if got.Name != "Ada L" || got.Email != "ada.l@example.com" || got.Role != domain.RoleAgentL1 {
		t.Fatalf("update not applied: %+v", got)
	}

	// Colliding email surfaces as ErrDuplicate.
	if err := UpdateUserProfile(context.Background(), db, u.ID, "Ada L", "bob@example.com", domain.RoleAgentL1); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Missing row surfaces as ErrNotFound.
	if err := UpdateUserProfile(context.Background(), db, 9999, "n", "n@example.com", domain.RoleClient); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserPassword_ClearsForceFlag(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	u := &domain.User{Name: "Tmp", Email: "tmp@example.com", PasswordHash: "old", Role: domain.RoleClient, ForcePasswordChange: true}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := UpdateUserPassword(context.Background(), db, u.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	got, _ := GetUser(context.Background(), db, u.ID)
	if got.PasswordHash != "new-hash" {
		t.Fatalf("hash not updated: %+v", got)
	}
	if got.ForcePasswordChange {
		t.Fatal("force_password_change must be cleared with the new hash")
	}

	if err := UpdateUserPassword(context.Background(), db, 9999, "h"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserGuarded_LastAdminBlocked(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	admin := seedUser(t, db, "Root", "root@example.com", domain.RoleAdmin)

	if err := DeleteUserGuarded(context.Background(), db, admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
	// Row must still be there (transaction rolled back).
	if _, err := GetUser(context.Background(), db, admin.ID); err != nil {
		t.Fatalf("last admin was deleted despite guard: %v", err)
	}

	// A second admin unblocks the delete.
	seedUser(t, db, "Root2", "root2@example.com", domain.RoleAdmin)
	if err := DeleteUserGuarded(context.Background(), db, admin.ID); err != nil {
		t.Fatalf("delete with a second admin present: %v", err)
	}
	if _, err := GetUser(context.Background(), db, admin.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected admin to be gone, got %v", err)
	}
}

func TestDeleteUserGuarded_NonAdminAndMissing(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	seedUser(t, db, "Root", "root@example.com", domain.RoleAdmin)
	c := seedUser(t, db, "Cli", "cli@example.com", domain.RoleClient)

	if err := DeleteUserGuarded(context.Background(), db, c.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}
	if err := DeleteUserGuarded(context.Background(), db, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountAdmins(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	if n, err := CountAdmins(context.Background(), db); err != nil || n != 0 {
		t.Fatalf("empty table: n=%d err=%v", n, err)
	}
	seedUser(t, db, "A", "a@example.com", domain.RoleAdmin)
	seedUser(t, db, "B", "b@example.com", domain.RoleClient)
	if n, err := CountAdmins(context.Background(), db); err != nil || n != 1 {
		t.Fatalf("n=%d err=%v; want 1", n, err)
	}
}
