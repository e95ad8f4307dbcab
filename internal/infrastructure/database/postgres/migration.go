// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/product"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"github.com/your-org/beauty-store-backend/internal/domain/welcomegift"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{db: db, log: log}
}

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&product.Product{},
		&product.ProductVariant{},
		&welcomegift.Gift{},
		&welcomegift.UserReward{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("🔄 Running database auto-migrations...")

	for _, model := range Models() {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// ownerCheck holds a reward to exactly one owner: a user or an anonymous visitor.
const ownerCheck = `DO $$ BEGIN
	ALTER TABLE user_rewards ADD CONSTRAINT chk_user_rewards_owner
		CHECK (num_nonnulls(user_id, anonymous_id) = 1);
EXCEPTION WHEN duplicate_object THEN NULL;
END $$`

// indexStatements lists the DDL CreateIndexes runs for dialect.
func indexStatements(dialect string) []string {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_active_created ON products(is_active, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_welcome_gifts_active_order ON welcome_gifts(is_active, display_order)",
		"CREATE INDEX IF NOT EXISTS idx_user_rewards_gift_used ON user_rewards(gift_id, is_used)",
		"CREATE INDEX IF NOT EXISTS idx_user_rewards_user_claimed ON user_rewards(user_id, claimed_at)",
		"CREATE INDEX IF NOT EXISTS idx_user_rewards_migrated_from ON user_rewards(migrated_from_anonymous_id)",
	}
	if dialect == "postgres" {
		stmts = append(stmts, ownerCheck)
	}
	return stmts
}

// CreateIndexes creates the query-path indexes GORM tags do not express.
// Failures are logged and counted, not fatal.
func (m *Migration) CreateIndexes() (int, error) {
	m.log.Info("🔄 Creating additional database indexes...")

	indexes := indexStatements(m.db.Dialector.Name())

	failed := 0
	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			m.log.WithError(err).Warn("⚠️ Failed to create index")
			failed++
		}
	}

	m.log.Infof("✅ Created %d indexes successfully (%d failed)", len(indexes)-failed, failed)
	if failed > 0 {
		return failed, fmt.Errorf("%d index statements failed", failed)
	}
	return 0, nil
}

// SeedInitialData inserts development data. Existing rows are left alone.
func (m *Migration) SeedInitialData() error {
	m.log.Info("🌱 Seeding initial data...")

	if err := m.seedAdminUser(); err != nil {
		return err
	}
	if err := m.seedProducts(); err != nil {
		return err
	}
	if err := m.seedWelcomeGifts(); err != nil {
		return err
	}

	m.log.Info("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminUser() error {
	var count int64
	if err := m.db.Model(&user.User{}).Where("email = ?", "admin@example.com").Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if count > 0 {
		m.log.Debug("⏭️ Admin user already exists")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("Admin#12345"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Email:     "admin@example.com",
		Password:  string(hashedPassword),
		FirstName: "Admin",
		LastName:  "User",
		IsActive:  true,
		IsAdmin:   true,
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	m.log.WithField("user_id", admin.ID).Info("✅ Created admin user: admin@example.com")
	return nil
}

func (m *Migration) seedProducts() error {
	products := []product.Product{
		{
			SKU:          "GLOW-SERUM-30",
			Name:         "Vitamin C Glow Serum",
			Slug:         "vitamin-c-glow-serum",
			Brand:        "Lumière",
			Description:  "Brightening serum with 15% vitamin C and ferulic acid.",
			Price:        89900, // ₹899
			ComparePrice: 109900,
			IsActive:     true,
			Quantity:     120,
		},
		{
			SKU:         "HYD-CREAM-50",
			Name:        "Ceramide Barrier Cream",
			Slug:        "ceramide-barrier-cream",
			Brand:       "Dermaveil",
			Description: "Rich moisturiser that restores the skin barrier overnight.",
			Price:       64900, // ₹649
			IsActive:    true,
			Quantity:    80,
		},
		{
			SKU:         "LIP-TINT",
			Name:        "Velvet Lip Tint",
			Slug:        "velvet-lip-tint",
			Brand:       "Rosé Atelier",
			Description: "Long-wear lip tint in six shades.",
			Price:       39900, // ₹399
			IsActive:    true,
			Quantity:    200,
			Variants: []product.ProductVariant{
				{SKU: "LIP-TINT-ROSE", Name: "Rose", IsActive: true, Quantity: 60},
				{SKU: "LIP-TINT-BERRY", Name: "Berry", IsActive: true, Quantity: 70},
				{SKU: "LIP-TINT-NUDE-XL", Name: "Nude (XL)", Price: 49900, IsActive: true, Quantity: 70},
			},
		},
		{
			SKU:         "SPF50-GEL",
			Name:        "Invisible Sunscreen Gel SPF 50",
			Slug:        "invisible-sunscreen-gel-spf-50",
			Brand:       "Lumière",
			Description: "Weightless broad-spectrum sunscreen with no white cast.",
			Price:       54900, // ₹549
			IsActive:    true,
			Quantity:    150,
		},
	}

	for _, prod := range products {
		var count int64
		if err := m.db.Model(&product.Product{}).Where("sku = ?", prod.SKU).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check product %s: %w", prod.SKU, err)
		}
		if count > 0 {
			continue
		}
		if err := m.db.Create(&prod).Error; err != nil {
			m.log.WithError(err).WithField("sku", prod.SKU).Warn("⚠️ Failed to create product")
			continue
		}
		m.log.WithField("sku", prod.SKU).Debug("Created product")
	}
	return nil
}

func (m *Migration) seedWelcomeGifts() error {
	var count int64
	if err := m.db.Model(&welcomegift.Gift{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count welcome gifts: %w", err)
	}
	if count > 0 {
		m.log.Debug("⏭️ Welcome gifts already exist")
		return nil
	}

	maxDiscount := int64(30000)
	gifts := []welcomegift.Gift{
		{
			Title:          "15% Off Your First Order",
			Description:    "A little something to start your routine.",
			Icon:           "percent",
			Color:          "rose",
			RewardText:     "15% off, up to ₹300",
			CouponCode:     "WELCOME15",
			DisplayOrder:   1,
			RewardType:     welcomegift.RewardPercentage,
			RewardValue:    15,
			MaxDiscount:    &maxDiscount,
			MinOrderAmount: 49900,
			IsActive:       true,
		},
		{
			Title:          "₹200 Off",
			Description:    "Flat discount on orders above ₹999.",
			Icon:           "gift",
			Color:          "peach",
			RewardText:     "Flat ₹200 off",
			CouponCode:     "FLAT200",
			DisplayOrder:   2,
			RewardType:     welcomegift.RewardFixedAmount,
			RewardValue:    20000,
			MinOrderAmount: 99900,
			IsActive:       true,
		},
		{
			Title:        "Buy One Get One",
			Description:  "Pick any two, the cheaper one is on us.",
			Icon:         "sparkles",
			Color:        "lavender",
			RewardText:   "Cheapest item free",
			CouponCode:   "BOGOGLOW",
			DisplayOrder: 3,
			RewardType:   welcomegift.RewardBuyOneGetOne,
			IsActive:     true,
		},
		{
			Title:        "Free Shipping",
			Description:  "Free delivery on your first order.",
			Icon:         "truck",
			Color:        "mint",
			RewardText:   "Free standard shipping",
			CouponCode:   "FREESHIP",
			DisplayOrder: 4,
			RewardType:   welcomegift.RewardFreeShipping,
			IsActive:     true,
		},
	}

	if err := m.db.Create(&gifts).Error; err != nil {
		return fmt.Errorf("failed to seed welcome gifts: %w", err)
	}
	m.log.Infof("✅ Created %d welcome gifts", len(gifts))
	return nil
}

// GetTableInfo logs row counts for every migrated table
func (m *Migration) GetTableInfo() map[string]int64 {
	info := make(map[string]int64)
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			continue
		}
		table := stmt.Schema.Table

		var count int64
		if !m.db.Migrator().HasTable(table) {
			m.log.WithField("table", table).Warn("❌ table missing")
			continue
		}
		m.db.Table(table).Count(&count)
		info[table] = count
	}
	m.log.WithFields(logrus.Fields{"tables": info}).Info("📊 Database tables")
	return info
}
