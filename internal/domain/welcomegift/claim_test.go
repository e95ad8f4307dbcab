package welcomegift

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"gorm.io/gorm"
)

func TestClaimGiftAsUser(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "GLOW20", 1, 20, nil)
	uid := env.createUser(t, "ana@example.com")
	before := testutil.ToFloat64(claimsTotal.WithLabelValues(outcomeSuccess))

	res, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid})
	if err != nil {
		t.Fatalf("ClaimGift: %v", err)
	}

	if res.Reward.UserID == nil || *res.Reward.UserID != uid || res.Reward.AnonymousID != nil {
		t.Fatalf("reward owner = %+v", res.Reward)
	}
	if res.Reward.Reward.CouponCode != "GLOW20" || res.Reward.Reward.Title != gift.Title || res.Reward.Reward.Type != RewardPercentage {
		t.Fatalf("snapshot = %+v", res.Reward.Reward)
	}
	if got := env.usageCount(t, gift.ID); got != 1 {
		t.Fatalf("usage count = %d, want 1", got)
	}

	var u user.User
	env.db.First(&u, uid)
	if !u.HasClaimedWelcomeGift || u.WelcomeGiftID == nil || *u.WelcomeGiftID != gift.ID {
		t.Fatalf("user claim flag not stamped: %+v", u)
	}
	if got := testutil.ToFloat64(claimsTotal.WithLabelValues(outcomeSuccess)); got != before+1 {
		t.Fatalf("success counter = %v, want %v", got, before+1)
	}
}

func TestClaimGiftOnePerUser(t *testing.T) {
	env := newTestEnv(t)
	first := env.percentageGift(t, "FIRST", 1, 10, nil)
	second := env.percentageGift(t, "SECOND", 2, 10, nil)
	uid := env.createUser(t, "one@example.com")

	if _, err := env.svc.ClaimGift(env.ctx, first.ID, Identity{UserID: &uid}); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	for _, g := range []*Gift{first, second} {
		if _, err := env.svc.ClaimGift(env.ctx, g.ID, Identity{UserID: &uid}); !errors.Is(err, ErrAlreadyClaimed) {
			t.Fatalf("second claim of %s: got %v, want ErrAlreadyClaimed", g.CouponCode, err)
		}
	}

	if got := env.usageCount(t, first.ID); got != 1 {
		t.Fatalf("first usage count = %d, want 1", got)
	}
	if got := env.usageCount(t, second.ID); got != 0 {
		t.Fatalf("second usage count = %d, want 0", got)
	}
}

func TestClaimGiftUserBlockedEvenAfterRedemption(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "ONCE", 1, 10, nil)
	uid := env.createUser(t, "once@example.com")

	if _, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := env.svc.MarkUsed(env.ctx, uid, &MarkUsedRequest{}); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if _, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("claim after redemption: got %v", err)
	}
}

func TestClaimGiftOnePerAnonymousID(t *testing.T) {
	env := newTestEnv(t)
	first := env.percentageGift(t, "ANONA", 1, 10, nil)
	second := env.percentageGift(t, "ANONB", 2, 10, nil)
	anon := env.anonID(t)

	res, err := env.svc.ClaimGift(env.ctx, first.ID, Identity{AnonymousID: anon})
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if res.Reward.AnonymousID == nil || *res.Reward.AnonymousID != anon || res.Reward.UserID != nil {
		t.Fatalf("reward owner = %+v", res.Reward)
	}

	if _, err := env.svc.ClaimGift(env.ctx, second.ID, Identity{AnonymousID: anon}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("second anonymous claim: got %v", err)
	}
	if got := env.usageCount(t, second.ID); got != 0 {
		t.Fatalf("usage count after rejected claim = %d", got)
	}

	// a different visitor is unaffected
	if _, err := env.svc.ClaimGift(env.ctx, second.ID, Identity{AnonymousID: env.anonID(t)}); err != nil {
		t.Fatalf("other visitor claim: %v", err)
	}
}

func TestClaimGiftInvalidAnonymousID(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "SESSION", 1, 10, nil)

	for name, who := range map[string]Identity{
		"no identity":    {},
		"forged id":      {AnonymousID: "1700000000000-00112233445566778899aabbccddeeff-0011223344556677"},
		"garbage":        {AnonymousID: "not-a-token"},
		"extra segments": {AnonymousID: env.anonID(t) + "-x"},
	} {
		if _, err := env.svc.ClaimGift(env.ctx, gift.ID, who); !errors.Is(err, ErrInvalidAnonymousID) {
			t.Errorf("%s: got %v, want ErrInvalidAnonymousID", name, err)
		}
	}
	if got := env.usageCount(t, gift.ID); got != 0 {
		t.Fatalf("usage count = %d after rejected claims", got)
	}
}

func TestClaimGiftMissingOrInactive(t *testing.T) {
	env := newTestEnv(t)
	uid := env.createUser(t, "x@example.com")

	if _, err := env.svc.ClaimGift(env.ctx, 12345, Identity{UserID: &uid}); !errors.Is(err, ErrGiftNotFound) {
		t.Fatalf("missing gift: got %v", err)
	}

	gift := env.percentageGift(t, "SLEEPY", 1, 10, nil)
	env.svc.ToggleGift(env.ctx, gift.ID)
	if _, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid}); !errors.Is(err, ErrGiftInactive) {
		t.Fatalf("inactive gift: got %v", err)
	}
}

func TestClaimGiftIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "ATOMIC", 1, 10, nil)
	uid := env.createUser(t, "atomic@example.com")

	injected := errors.New("injected insert failure")
	err := env.db.Callback().Create().Before("gorm:create").Register("test:fail_reward_insert", func(tx *gorm.DB) {
		if tx.Statement.Table == "user_rewards" {
			tx.AddError(injected)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid})
	if !errors.Is(err, injected) {
		t.Fatalf("ClaimGift: got %v, want injected failure", err)
	}

	if got := env.usageCount(t, gift.ID); got != 0 {
		t.Fatalf("usage count = %d after aborted claim, want 0", got)
	}
	if got := env.rewardCount(t, "gift_id = ?", gift.ID); got != 0 {
		t.Fatalf("%d rewards persisted after aborted claim", got)
	}
	var u user.User
	env.db.First(&u, uid)
	if u.HasClaimedWelcomeGift {
		t.Fatal("user flag stamped by aborted claim")
	}
}

func TestUnusedRewardUniqueIndex(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "INDEX", 1, 10, nil)
	uid := env.createUser(t, "index@example.com")

	used := UserReward{GiftID: gift.ID, UserID: &uid, IsUsed: true, ClaimedAt: env.svc.now()}
	if err := env.db.Create(&used).Error; err != nil {
		t.Fatalf("insert used reward: %v", err)
	}
	unused := UserReward{GiftID: gift.ID, UserID: &uid, ClaimedAt: env.svc.now()}
	if err := env.db.Create(&unused).Error; err != nil {
		t.Fatalf("insert first unused reward: %v", err)
	}

	dup := UserReward{GiftID: gift.ID, UserID: &uid, ClaimedAt: env.svc.now()}
	err := env.db.Create(&dup).Error
	if err == nil || !isDuplicateKey(err) {
		t.Fatalf("second unused reward for user: got %v, want duplicate key", err)
	}
}

func TestSnapshotSurvivesGiftEdits(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "SNAP", 1, 10, nil)
	uid := env.createUser(t, "snap@example.com")

	if _, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	title, text := "Totally New", "Different text"
	if _, err := env.svc.UpdateGift(env.ctx, gift.ID, &UpdateGiftRequest{Title: &title, RewardText: &text}); err != nil {
		t.Fatalf("UpdateGift: %v", err)
	}

	rewards, err := env.svc.ListUserRewards(env.ctx, uid)
	if err != nil || len(rewards) != 1 {
		t.Fatalf("ListUserRewards: %v (%d)", err, len(rewards))
	}
	if rewards[0].Reward.Title != "Glow Discount" || rewards[0].Reward.Text != "Save on your first order" {
		t.Fatalf("snapshot changed: %+v", rewards[0].Reward)
	}
	if rewards[0].Gift == nil || rewards[0].Gift.Title != "Totally New" {
		t.Fatalf("live gift not preloaded: %+v", rewards[0].Gift)
	}
}

func TestCheckEligibility(t *testing.T) {
	env := newTestEnv(t)

	if e := env.svc.CheckEligibility(env.ctx, Identity{}); e.ShouldShowPopup || e.Reason != "no_active_gifts" {
		t.Fatalf("no gifts: %+v", e)
	}

	gift := env.percentageGift(t, "ELIGIBLE", 1, 10, nil)
	if e := env.svc.CheckEligibility(env.ctx, Identity{}); !e.ShouldShowPopup {
		t.Fatalf("new visitor: %+v", e)
	}
	if e := env.svc.CheckEligibility(env.ctx, Identity{AnonymousID: "forged-value-here"}); e.ShouldShowPopup {
		t.Fatalf("invalid anonymous id should not show popup: %+v", e)
	}

	anon := env.anonID(t)
	if e := env.svc.CheckEligibility(env.ctx, Identity{AnonymousID: anon}); !e.ShouldShowPopup {
		t.Fatalf("fresh anonymous id: %+v", e)
	}
	env.svc.ClaimGift(env.ctx, gift.ID, Identity{AnonymousID: anon})
	if e := env.svc.CheckEligibility(env.ctx, Identity{AnonymousID: anon}); e.ShouldShowPopup || !e.HasClaimed {
		t.Fatalf("anonymous after claim: %+v", e)
	}

	uid := env.createUser(t, "elig@example.com")
	if e := env.svc.CheckEligibility(env.ctx, Identity{UserID: &uid}); !e.ShouldShowPopup {
		t.Fatalf("user before claim: %+v", e)
	}
	env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid})
	if e := env.svc.CheckEligibility(env.ctx, Identity{UserID: &uid}); e.ShouldShowPopup {
		t.Fatalf("user after claim: %+v", e)
	}
}
