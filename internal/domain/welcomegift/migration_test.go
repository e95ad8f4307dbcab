package welcomegift

import (
	"errors"
	"testing"

	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"gorm.io/gorm"
)

func TestMigrateAnonymous(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "MIGRATE", 1, 10, nil)
	anon := env.anonID(t)
	uid := env.createUser(t, "mig@example.com")

	claim, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{AnonymousID: anon})
	if err != nil {
		t.Fatalf("anonymous claim: %v", err)
	}

	res := env.svc.MigrateAnonymous(env.ctx, anon, uid)
	if !res.Migrated || res.Reward == nil {
		t.Fatalf("MigrateAnonymous = %+v", res)
	}
	if res.Reward.ID != claim.Reward.ID {
		t.Fatalf("migration created a new record: %d != %d", res.Reward.ID, claim.Reward.ID)
	}

	var r UserReward
	env.db.First(&r, claim.Reward.ID)
	if r.UserID == nil || *r.UserID != uid {
		t.Fatalf("reward owner = %v", r.UserID)
	}
	if r.AnonymousID != nil {
		t.Fatalf("anonymous id not cleared: %v", *r.AnonymousID)
	}
	if r.MigratedFromAnonymousID == nil || *r.MigratedFromAnonymousID != anon || r.MigratedAt == nil {
		t.Fatalf("migration metadata missing: %+v", r)
	}

	var u user.User
	env.db.First(&u, uid)
	if !u.HasClaimedWelcomeGift || u.WelcomeGiftID == nil || *u.WelcomeGiftID != gift.ID {
		t.Fatalf("user flag not stamped: %+v", u)
	}

	// usage was counted at claim time only
	if got := env.usageCount(t, gift.ID); got != 1 {
		t.Fatalf("usage count = %d", got)
	}
}

func TestMigrateAnonymousIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "TWICE", 1, 10, nil)
	anon := env.anonID(t)
	uid := env.createUser(t, "twice@example.com")
	env.svc.ClaimGift(env.ctx, gift.ID, Identity{AnonymousID: anon})

	first := env.svc.MigrateAnonymous(env.ctx, anon, uid)
	second := env.svc.MigrateAnonymous(env.ctx, anon, uid)

	if !first.Migrated {
		t.Fatalf("first migration = %+v", first)
	}
	if second.Migrated || second.Message != msgNoMigration {
		t.Fatalf("second migration = %+v, want no-op", second)
	}
	if n := env.rewardCount(t, "1 = 1"); n != 1 {
		t.Fatalf("%d rewards exist, want 1", n)
	}
	if n := env.rewardCount(t, "user_id = ? AND anonymous_id IS NULL", uid); n != 1 {
		t.Fatalf("reward not owned by user after two migrations")
	}
}

func TestMigrateAnonymousNoops(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "NOOP", 1, 10, nil)
	other := env.percentageGift(t, "NOOP2", 2, 10, nil)

	t.Run("invalid anonymous id", func(t *testing.T) {
		uid := env.createUser(t, "invalid@example.com")
		res := env.svc.MigrateAnonymous(env.ctx, "1-2-3", uid)
		if res.Migrated || res.Message != msgNoMigration {
			t.Fatalf("got %+v", res)
		}
	})

	t.Run("no anonymous claim", func(t *testing.T) {
		uid := env.createUser(t, "none@example.com")
		res := env.svc.MigrateAnonymous(env.ctx, env.anonID(t), uid)
		if res.Migrated {
			t.Fatalf("got %+v", res)
		}
	})

	t.Run("user already holds a reward", func(t *testing.T) {
		uid := env.createUser(t, "holder@example.com")
		anon := env.anonID(t)
		if _, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{UserID: &uid}); err != nil {
			t.Fatalf("user claim: %v", err)
		}
		if _, err := env.svc.ClaimGift(env.ctx, other.ID, Identity{AnonymousID: anon}); err != nil {
			t.Fatalf("anonymous claim: %v", err)
		}

		res := env.svc.MigrateAnonymous(env.ctx, anon, uid)
		if res.Migrated {
			t.Fatalf("got %+v", res)
		}
		if n := env.rewardCount(t, "anonymous_id = ?", anon); n != 1 {
			t.Fatal("anonymous reward was touched")
		}
	})

	t.Run("anonymous reward already used", func(t *testing.T) {
		uid := env.createUser(t, "used@example.com")
		anon := env.anonID(t)
		claim, err := env.svc.ClaimGift(env.ctx, gift.ID, Identity{AnonymousID: anon})
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		env.db.Model(&UserReward{}).Where("id = ?", claim.Reward.ID).Update("is_used", true)

		if res := env.svc.MigrateAnonymous(env.ctx, anon, uid); res.Migrated {
			t.Fatalf("got %+v", res)
		}
	})
}

func TestMigrateAnonymousSoftFails(t *testing.T) {
	env := newTestEnv(t)
	gift := env.percentageGift(t, "SOFT", 1, 10, nil)
	anon := env.anonID(t)
	uid := env.createUser(t, "soft@example.com")
	env.svc.ClaimGift(env.ctx, gift.ID, Identity{AnonymousID: anon})

	err := env.db.Callback().Update().Before("gorm:update").Register("test:fail_reward_update", func(tx *gorm.DB) {
		if tx.Statement.Table == "user_rewards" {
			tx.AddError(errors.New("injected update failure"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	res := env.svc.MigrateAnonymous(env.ctx, anon, uid)
	if res.Migrated || res.Message != msgMigrationFailed {
		t.Fatalf("got %+v, want soft failure", res)
	}
	if n := env.rewardCount(t, "anonymous_id = ?", anon); n != 1 {
		t.Fatal("failed migration changed the reward")
	}
}
