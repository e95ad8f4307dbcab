package welcomegift

import (
	"errors"
	"strings"
	"testing"

	"github.com/your-org/beauty-store-backend/internal/domain/cart"
)

// redeemFixture gives a user a claimed reward for gift and returns the user id.
func (e *testEnv) redeemFixture(t *testing.T, gift *Gift, email string) uint {
	t.Helper()
	uid := e.createUser(t, email)
	if _, err := e.svc.ClaimGift(e.ctx, gift.ID, Identity{UserID: &uid}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	return uid
}

func TestValidateCouponDetectsCartTampering(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "TAMPER", 1, 10, nil)
	uid := env.redeemFixture(t, gift, "tamper@example.com")
	pid := env.createProduct(t, "SERUM", 60000)

	items := []cart.Line{{ProductID: pid, Quantity: 2}} // true total 120000

	_, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
		CouponCode: "TAMPER", OrderAmount: 60000, CartItems: items,
	})
	if !errors.Is(err, ErrCartMismatch) {
		t.Fatalf("half total: got %v, want ErrCartMismatch", err)
	}

	for _, amount := range []int64{119900, 120000, 120100} {
		res, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
			CouponCode: "tamper", OrderAmount: amount, CartItems: items,
		})
		if err != nil {
			t.Fatalf("amount %d within tolerance: %v", amount, err)
		}
		if res.CartTotal != 120000 {
			t.Fatalf("CartTotal = %d", res.CartTotal)
		}
	}

	_, err = env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
		CouponCode: "TAMPER", OrderAmount: 120101, CartItems: items,
	})
	if !errors.Is(err, ErrCartMismatch) {
		t.Fatalf("just outside tolerance: got %v", err)
	}
}

func TestValidateCouponDoesNotConsume(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "KEEP", 1, 10, nil)
	uid := env.redeemFixture(t, gift, "keep@example.com")
	pid := env.createProduct(t, "TONER", 50000)
	req := &ValidateCouponRequest{CouponCode: "KEEP", OrderAmount: 50000, CartItems: []cart.Line{{ProductID: pid, Quantity: 1}}}

	for i := 0; i < 2; i++ {
		if _, err := env.svc.ValidateCoupon(env.ctx, uid, req); err != nil {
			t.Fatalf("validation %d: %v", i+1, err)
		}
	}
	if n := env.rewardCount(t, "user_id = ? AND is_used = ?", uid, false); n != 1 {
		t.Fatal("validation consumed the reward")
	}

	used, err := env.svc.MarkUsed(env.ctx, uid, &MarkUsedRequest{CouponCode: "keep", OrderRef: "ORD-1001"})
	if err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if !used.IsUsed || used.UsedAt == nil || used.UsedOrderRef != "ORD-1001" {
		t.Fatalf("reward after MarkUsed = %+v", used)
	}

	if _, err := env.svc.MarkUsed(env.ctx, uid, &MarkUsedRequest{}); !errors.Is(err, ErrRewardAlreadyUsed) {
		t.Fatalf("second MarkUsed: got %v, want ErrRewardAlreadyUsed", err)
	}
	if _, err := env.svc.ValidateCoupon(env.ctx, uid, req); !errors.Is(err, ErrAlreadyRedeemed) {
		t.Fatalf("validate after redemption: got %v, want ErrAlreadyRedeemed", err)
	}
}

func TestMarkUsedWithoutReward(t *testing.T) {
	env := newTestEnv(t)
	uid := env.createUser(t, "empty@example.com")

	if _, err := env.svc.MarkUsed(env.ctx, uid, &MarkUsedRequest{}); !errors.Is(err, ErrNoUnusedReward) {
		t.Fatalf("got %v, want ErrNoUnusedReward", err)
	}
}

func TestValidateCouponDiscounts(t *testing.T) {
	env := newTestEnv(t)
	cheap := env.createProduct(t, "BALM", 1000)
	mid := env.createProduct(t, "MASK", 30000)
	big := env.createProduct(t, "PALETTE", 150000)

	tests := []struct {
		name         string
		gift         CreateGiftRequest
		items        []cart.Line
		orderAmount  int64
		wantDiscount int64
		wantShipping int64
		wantFinal    int64
	}{
		{
			name:         "percentage cap binds",
			gift:         CreateGiftRequest{CouponCode: "HALF", RewardType: RewardPercentage, RewardValue: 50, MaxDiscount: ptrInt64(100)},
			items:        []cart.Line{{ProductID: cheap, Quantity: 1}},
			orderAmount:  1000,
			wantDiscount: 100,
			wantShipping: 5000,
			wantFinal:    1000 + 5000 - 100,
		},
		{
			name:         "percentage without cap",
			gift:         CreateGiftRequest{CouponCode: "TEN", RewardType: RewardPercentage, RewardValue: 10},
			items:        []cart.Line{{ProductID: mid, Quantity: 2}},
			orderAmount:  60000,
			wantDiscount: 6000,
			wantShipping: 5000,
			wantFinal:    60000 + 5000 - 6000,
		},
		{
			name:         "fixed amount limited to cart total",
			gift:         CreateGiftRequest{CouponCode: "FLAT", RewardType: RewardFixedAmount, RewardValue: 20000},
			items:        []cart.Line{{ProductID: cheap, Quantity: 3}},
			orderAmount:  3000,
			wantDiscount: 3000,
			wantShipping: 5000,
			wantFinal:    5000,
		},
		{
			name:         "free shipping waives the fee",
			gift:         CreateGiftRequest{CouponCode: "SHIPFREE", RewardType: RewardFreeShipping},
			items:        []cart.Line{{ProductID: mid, Quantity: 1}},
			orderAmount:  30000,
			wantDiscount: 5000,
			wantShipping: 5000,
			wantFinal:    30000,
		},
		{
			name:         "free shipping above threshold is worth nothing",
			gift:         CreateGiftRequest{CouponCode: "SHIPBIG", RewardType: RewardFreeShipping},
			items:        []cart.Line{{ProductID: big, Quantity: 1}},
			orderAmount:  150000,
			wantDiscount: 0,
			wantShipping: 0,
			wantFinal:    150000,
		},
		{
			name:         "bogo frees the cheapest unit",
			gift:         CreateGiftRequest{CouponCode: "BOGO", RewardType: RewardBuyOneGetOne},
			items:        []cart.Line{{ProductID: mid, Quantity: 1}, {ProductID: cheap, Quantity: 1}},
			orderAmount:  31000,
			wantDiscount: 1000,
			wantShipping: 5000,
			wantFinal:    31000 + 5000 - 1000,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.gift
			req.Title, req.RewardText, req.Order = tt.name, tt.name, i+1
			gift := env.createGift(t, req)
			uid := env.redeemFixture(t, gift, strings.ReplaceAll(tt.name, " ", ".")+"@example.com")

			res, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
				CouponCode: gift.CouponCode, OrderAmount: tt.orderAmount, CartItems: tt.items,
			})
			if err != nil {
				t.Fatalf("ValidateCoupon: %v", err)
			}
			if res.DiscountAmount != tt.wantDiscount || res.ShippingFee != tt.wantShipping || res.FinalAmount != tt.wantFinal {
				t.Fatalf("discount/shipping/final = %d/%d/%d, want %d/%d/%d",
					res.DiscountAmount, res.ShippingFee, res.FinalAmount,
					tt.wantDiscount, tt.wantShipping, tt.wantFinal)
			}
			if res.Reason == "" {
				t.Fatal("empty reason")
			}
		})
	}
}

func TestValidateCouponBogoThreshold(t *testing.T) {
	env := newTestEnv(t)
	gift := env.createGift(t, CreateGiftRequest{
		Title: "BOGO", RewardText: "Buy one get one", CouponCode: "PAIR", Order: 1, RewardType: RewardBuyOneGetOne,
	})
	uid := env.redeemFixture(t, gift, "bogo@example.com")
	pid := env.createProduct(t, "LINER", 20000)

	_, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
		CouponCode: "PAIR", OrderAmount: 20000, CartItems: []cart.Line{{ProductID: pid, Quantity: 1}},
	})
	if !errors.Is(err, ErrInsufficientItems) || !strings.Contains(err.Error(), "add 1 more item") {
		t.Fatalf("one item: got %v", err)
	}

	res, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
		CouponCode: "PAIR", OrderAmount: 40000, CartItems: []cart.Line{{ProductID: pid, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("two items: %v", err)
	}
	if res.DiscountAmount != 20000 {
		t.Fatalf("DiscountAmount = %d, want 20000", res.DiscountAmount)
	}
}

func TestValidateCouponMinimumOrder(t *testing.T) {
	env := newTestEnv(t)
	gift := env.createGift(t, CreateGiftRequest{
		Title: "Big spender", RewardText: "Rs 200 off", CouponCode: "MIN500", Order: 1,
		RewardType: RewardFixedAmount, RewardValue: 20000, MinOrderAmount: 50000,
	})
	uid := env.redeemFixture(t, gift, "min@example.com")
	pid := env.createProduct(t, "CREAM", 45050)

	_, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
		CouponCode: "MIN500", OrderAmount: 45050, CartItems: []cart.Line{{ProductID: pid, Quantity: 1}},
	})
	if !errors.Is(err, ErrMinOrderNotMet) || !strings.Contains(err.Error(), "₹49.50") {
		t.Fatalf("got %v, want shortfall of ₹49.50", err)
	}
}

func TestValidateCouponRequiresClaim(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "MINE", 1, 10, nil)
	env.percentageGift(t, "THEIRS", 2, 10, nil)
	uid := env.redeemFixture(t, gift, "claimer@example.com")
	stranger := env.createUser(t, "stranger@example.com")
	pid := env.createProduct(t, "MIST", 10000)
	items := []cart.Line{{ProductID: pid, Quantity: 1}}

	if _, err := env.svc.ValidateCoupon(env.ctx, stranger, &ValidateCouponRequest{CouponCode: "MINE", OrderAmount: 10000, CartItems: items}); !errors.Is(err, ErrGiftNotClaimed) {
		t.Fatalf("stranger: got %v", err)
	}
	if _, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{CouponCode: "THEIRS", OrderAmount: 10000, CartItems: items}); !errors.Is(err, ErrGiftNotClaimed) {
		t.Fatalf("other gift: got %v", err)
	}
	if _, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{CouponCode: "NOSUCH", OrderAmount: 10000, CartItems: items}); !errors.Is(err, ErrGiftNotFound) {
		t.Fatalf("unknown code: got %v", err)
	}
	if _, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{CouponCode: "MINE", OrderAmount: 10000, CartItems: []cart.Line{{ProductID: 4242, Quantity: 1}}}); !errors.Is(err, ErrInvalidCart) {
		t.Fatalf("unknown product: got %v", err)
	}
	if _, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{CouponCode: "MINE", OrderAmount: 10000}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("no cart items: got %v", err)
	}
}

func TestValidateCouponStillWorksForDeactivatedGift(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "RETIRED", 1, 10, nil)
	uid := env.redeemFixture(t, gift, "retired@example.com")
	stranger := env.createUser(t, "late@example.com")
	pid := env.createProduct(t, "OIL", 10000)
	items := []cart.Line{{ProductID: pid, Quantity: 1}}

	env.svc.ToggleGift(env.ctx, gift.ID)

	if _, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{CouponCode: "RETIRED", OrderAmount: 10000, CartItems: items}); err != nil {
		t.Fatalf("existing claim on inactive gift: %v", err)
	}
	if _, err := env.svc.ValidateCoupon(env.ctx, stranger, &ValidateCouponRequest{CouponCode: "RETIRED", OrderAmount: 10000, CartItems: items}); !errors.Is(err, ErrGiftInactive) {
		t.Fatalf("no claim on inactive gift: got %v", err)
	}
}

func TestValidateCouponMigratesInline(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "LATE", 1, 10, nil)
	anon := env.anonID(t)
	if _, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{AnonymousID: anon}); err != nil {
		t.Fatalf("anonymous claim: %v", err)
	}
	uid := env.createUser(t, "checkout@example.com")
	pid := env.createProduct(t, "GLOSS", 10000)
	items := []cart.Line{{ProductID: pid, Quantity: 1}}

	if _, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{CouponCode: "LATE", OrderAmount: 10000, CartItems: items}); !errors.Is(err, ErrGiftNotClaimed) {
		t.Fatalf("without anonymous id: got %v", err)
	}

	res, err := env.svc.ValidateCoupon(env.ctx, uid, &ValidateCouponRequest{
		CouponCode: "LATE", OrderAmount: 10000, CartItems: items, AnonymousID: anon,
	})
	if err != nil {
		t.Fatalf("with anonymous id: %v", err)
	}
	if !res.Migrated || res.DiscountAmount != 1000 {
		t.Fatalf("result = %+v", res)
	}
	if n := env.rewardCount(t, "user_id = ? AND migrated_from_anonymous_id = ?", uid, anon); n != 1 {
		t.Fatal("reward not migrated to user")
	}
}
