package welcomegift

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/your-org/beauty-store-backend/internal/config"
	"github.com/your-org/beauty-store-backend/internal/domain/product"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"github.com/your-org/beauty-store-backend/internal/pkg/anonymous"
	"github.com/your-org/beauty-store-backend/internal/pkg/logger"
	"github.com/your-org/beauty-store-backend/internal/testutil"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	svc    *Service
	signer *anonymous.Signer
	ctx    context.Context
}

func testConfig() *config.Config {
	return &config.Config{
		WelcomeGift: config.WelcomeGiftConfig{
			AnonymousSecret: "welcome-gift-test-secret-0123456789",
			AnonymousTTL:    24 * time.Hour,
			CartTolerance:   100,
			BogoMinItems:    2,
			CatalogCacheTTL: time.Minute,
			MaxCartQuantity: 99,
			MaxCartLines:    50,
			TxRetryAttempts: 3,
		},
		Shipping: config.ShippingConfig{
			StandardFee:           5000,
			FreeShippingThreshold: 100000,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t,
		&user.User{},
		&product.Product{}, &product.ProductVariant{},
		&Gift{}, &UserReward{},
	)
	cfg := testConfig()
	signer, err := anonymous.NewSigner(cfg.WelcomeGift.AnonymousSecret, cfg.WelcomeGift.AnonymousTTL)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	return &testEnv{
		db:     db,
		svc:    NewService(db, nil, signer, cfg, logger.Discard()),
		signer: signer,
		ctx:    context.Background(),
	}
}

func (e *testEnv) anonID(t *testing.T) string {
	t.Helper()
	id, err := e.signer.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return id
}

func (e *testEnv) createUser(t *testing.T, email string) uint {
	t.Helper()
	u := user.User{Email: email, Password: "hash", IsActive: true}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (e *testEnv) createGift(t *testing.T, req CreateGiftRequest) *Gift {
	t.Helper()
	g, err := e.svc.CreateGift(e.ctx, &req)
	if err != nil {
		t.Fatalf("CreateGift(%s): %v", req.CouponCode, err)
	}
	return g
}

func (e *testEnv) percentageGift(t *testing.T, code string, order int, value float64, maxDiscount *int64) *Gift {
	return e.createGift(t, CreateGiftRequest{
		Title:       "Glow Discount",
		RewardText:  "Save on your first order",
		CouponCode:  code,
		Order:       order,
		RewardType:  RewardPercentage,
		RewardValue: value,
		MaxDiscount: maxDiscount,
	})
}

func (e *testEnv) createProduct(t *testing.T, sku string, price int64) uint {
	t.Helper()
	p := product.Product{SKU: sku, Name: sku, Slug: sku, Price: price, IsActive: true}
	if err := e.db.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p.ID
}

func (e *testEnv) usageCount(t *testing.T, giftID uint) int64 {
	t.Helper()
	var g Gift
	if err := e.db.First(&g, giftID).Error; err != nil {
		t.Fatalf("load gift: %v", err)
	}
	return g.UsageCount
}

func (e *testEnv) rewardCount(t *testing.T, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&UserReward{}).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count rewards: %v", err)
	}
	return n
}

func ptrInt64(v int64) *int64 { return &v }
func ptrUint(v uint) *uint    { return &v }

// memoryCache is an in-process Cache used to observe invalidation.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deletes++
	return nil
}
