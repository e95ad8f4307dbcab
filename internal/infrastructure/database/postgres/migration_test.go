package postgres

import (
	"strings"
	"testing"

	"github.com/your-org/beauty-store-backend/internal/domain/product"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"github.com/your-org/beauty-store-backend/internal/domain/welcomegift"
	"github.com/your-org/beauty-store-backend/internal/pkg/logger"
	"github.com/your-org/beauty-store-backend/internal/testutil"
)

func TestMigrationOnSQLite(t *testing.T) {
	db := testutil.NewDB(t)
	m := NewMigration(db, logger.Discard())

	if err := m.RunAutoMigrations(); err != nil {
		t.Fatalf("RunAutoMigrations: %v", err)
	}
	if failed, err := m.CreateIndexes(); err != nil {
		t.Fatalf("CreateIndexes: %d failed: %v", failed, err)
	}

	for _, idx := range []string{"idx_user_rewards_unused_user", "idx_user_rewards_unused_anon"} {
		if !db.Migrator().HasIndex(&welcomegift.UserReward{}, idx) {
			t.Errorf("missing partial index %s", idx)
		}
	}

	// seeding twice must not duplicate rows
	for i := 0; i < 2; i++ {
		if err := m.SeedInitialData(); err != nil {
			t.Fatalf("SeedInitialData (run %d): %v", i+1, err)
		}
	}

	info := m.GetTableInfo()
	if info["welcome_gifts"] != 4 {
		t.Errorf("welcome_gifts = %d, want 4", info["welcome_gifts"])
	}
	if info["users"] != 1 {
		t.Errorf("users = %d, want 1", info["users"])
	}
	if info["products"] != 4 {
		t.Errorf("products = %d, want 4", info["products"])
	}
	if info["product_variants"] != 3 {
		t.Errorf("product_variants = %d, want 3", info["product_variants"])
	}

	var admin user.User
	if err := db.Where("email = ?", "admin@example.com").First(&admin).Error; err != nil || !admin.IsAdmin {
		t.Fatalf("admin user: %v %+v", err, admin)
	}

	var gifts []welcomegift.Gift
	db.Order("display_order").Find(&gifts)
	for i, g := range gifts {
		if g.DisplayOrder != i+1 || !g.IsActive {
			t.Errorf("gift %s: order %d active %v", g.CouponCode, g.DisplayOrder, g.IsActive)
		}
	}

	var tint product.Product
	db.Preload("Variants").Where("sku = ?", "LIP-TINT").First(&tint)
	if len(tint.Variants) != 3 {
		t.Fatalf("lip tint variants = %d", len(tint.Variants))
	}
}

func TestIndexStatementsOwnerCheck(t *testing.T) {
	pg := strings.Join(indexStatements("postgres"), "\n")
	if !strings.Contains(pg, "num_nonnulls(user_id, anonymous_id) = 1") {
		t.Fatalf("postgres DDL lacks the single-owner check:\n%s", pg)
	}
	if strings.Contains(pg, "user_id IS NOT NULL OR anonymous_id IS NOT NULL") {
		t.Fatal("postgres DDL still allows a reward with two owners")
	}

	for _, stmt := range indexStatements("sqlite") {
		if strings.Contains(stmt, "DO $$") {
			t.Fatalf("sqlite DDL contains a postgres block: %s", stmt)
		}
	}
}
