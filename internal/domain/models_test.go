package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	if (User{}).TableName() != "users" {
		t.Fatalf("User.TableName() = %q; want %q", (User{}).TableName(), "users")
	}
	if (Ticket{}).TableName() != "tickets" {
		t.Fatalf("Ticket.TableName() = %q; want %q", (Ticket{}).TableName(), "tickets")
	}
	if (Comment{}).TableName() != "comments" {
		t.Fatalf("Comment.TableName() = %q; want %q", (Comment{}).TableName(), "comments")
	}
}

func TestEnumValidators(t *testing.T) {
	for _, r := range []Role{RoleClient, RoleAgentL1, RoleAgentL2, RoleAdmin} {
		if !r.Valid() {
			t.Fatalf("expected role %q to be valid", r)
		}
	}
	if Role("superuser").Valid() {
		t.Fatal("expected unknown role to be invalid")
	}
	if RoleClient.Staff() {
		t.Fatal("client must not be staff")
	}
	for _, r := range []Role{RoleAgentL1, RoleAgentL2, RoleAdmin} {
		if !r.Staff() {
			t.Fatalf("expected role %q to be staff", r)
		}
	}

	for _, s := range Statuses() {
		if !s.Valid() {
			t.Fatalf("expected status %q to be valid", s)
		}
	}
	if len(Statuses()) != 3 {
		t.Fatalf("Statuses() = %v; want exactly three entries", Statuses())
	}
	if Status("reopened").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}

	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Fatalf("expected priority %q to be valid", p)
		}
	}
	if Priority("urgent").Valid() {
		t.Fatal("expected unknown priority to be invalid")
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&User{}, &Ticket{}, &Comment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&User{}, &Ticket{}, &Comment{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	// Indexes from tags exist
	if !m.HasIndex(&User{}, "ux_users_email") {
		t.Fatalf("expected unique index ux_users_email on users")
	}
	if !m.HasIndex(&Ticket{}, "idx_ticket_client") {
		t.Fatalf("expected index idx_ticket_client on tickets")
	}
	if !m.HasIndex(&Comment{}, "idx_ticket_comments") {
		t.Fatalf("expected index idx_ticket_comments on comments")
	}

	now := time.Now().UTC()

	client := &User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: RoleClient, CreatedAt: now}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("insert client: %v", err)
	}

	// Unique email is enforced by the index, not a pre-check.
	dup := &User{Name: "Ada 2", Email: "ada@example.com", PasswordHash: "x", Role: RoleClient}
	if err := db.Create(dup).Error; err == nil {
		t.Fatal("expected UNIQUE constraint violation on duplicate email")
	}

	tk := &Ticket{Title: "printer on fire", Description: "smoke", Status: StatusOpen, Priority: PriorityHigh, ClientID: client.ID, CreatedAt: now, LastUpdatedAt: now}
	if err := db.Create(tk).Error; err != nil {
		t.Fatalf("insert ticket: %v", err)
	}

	c1 := &Comment{Content: "on my way", TicketID: tk.ID, AuthorID: client.ID, CreatedAt: now}
	if err := db.Create(c1).Error; err != nil {
		t.Fatalf("insert comment: %v", err)
	}

	// CASCADE: deleting a ticket should delete its comments
	if err := db.Delete(&Ticket{}, "id = ?", tk.ID).Error; err != nil {
		t.Fatalf("delete ticket: %v", err)
	}
	var cnt int64
	if err := db.Model(&Comment{}).Where("ticket_id = ?", tk.ID).Count(&cnt).Error; err != nil {
		t.Fatalf("count comments after ticket delete: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected comments to cascade-delete when ticket deleted, got count=%d", cnt)
	}
}
