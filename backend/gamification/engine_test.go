package gamification

import (
	"fmt"
	"testing"
	"time"

	"project/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Roadmap{}, &models.Step{}, &models.Task{})
	require.NoError(t, err)

	return db
}

func fixedNow(day time.Time) func() time.Time {
	return func() time.Time { return day }
}

func day(offset int) time.Time {
	base := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestApplyTaskCompletionXP(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	engine.Now = fixedNow(day(0))

	user := models.User{XP: 0, Level: 1}

	engine.ApplyTaskCompletion(&user, true)
	assert.Equal(t, 10, user.XP)
	assert.Equal(t, 1, user.Level)

	engine.ApplyTaskCompletion(&user, false)
	assert.Equal(t, 0, user.XP)
	assert.Equal(t, 1, user.Level)
}

func TestXPNeverGoesNegative(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	engine.Now = fixedNow(day(0))

	user := models.User{XP: 0, Level: 1}
	for i := 0; i < 5; i++ {
		engine.ApplyTaskCompletion(&user, false)
	}
	assert.Equal(t, 0, user.XP)

	engine.ApplyStepCompletion(&user, false)
	assert.Equal(t, 0, user.XP)
}

func TestLevelTransitionAt100XP(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	engine.Now = fixedNow(day(0))

	// 95 XP -> выполняем задачу -> 105 XP, переход с 1 на 2 уровень
	user := models.User{XP: 95, Level: 1}
	engine.ApplyTaskCompletion(&user, true)

	assert.Equal(t, 105, user.XP)
	assert.Equal(t, 2, user.Level)
}

func TestLevelAlwaysDerivedFromXP(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	engine.Now = fixedNow(day(0))

	user := models.User{XP: 0, Level: 1}
	for i := 0; i < 12; i++ {
		engine.ApplyStepCompletion(&user, true)
		assert.Equal(t, user.XP/100+1, user.Level)
	}
	for i := 0; i < 20; i++ {
		engine.ApplyTaskCompletion(&user, false)
		assert.Equal(t, user.XP/100+1, user.Level)
	}
}

func TestStepCompletionDoesNotTouchStreak(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	engine.Now = fixedNow(day(0))

	user := models.User{XP: 40, Level: 1, Streak: 3}
	engine.ApplyStepCompletion(&user, true)
	assert.Equal(t, 90, user.XP)
	assert.Equal(t, 3, user.Streak)
	assert.Nil(t, user.LastActiveDate)

	engine.ApplyStepCompletion(&user, false)
	assert.Equal(t, 40, user.XP)
	assert.Equal(t, 3, user.Streak)
}

func TestStreakFirstActivity(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	engine.Now = fixedNow(day(0))

	user := models.User{}
	engine.ApplyTaskCompletion(&user, true)

	assert.Equal(t, 1, user.Streak)
	require.NotNil(t, user.LastActiveDate)
	assert.Equal(t, day(0).Truncate(24*time.Hour).Day(), user.LastActiveDate.Day())
}

func TestStreakSameDayUnchanged(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	engine.Now = fixedNow(day(0))

	user := models.User{}
	engine.ApplyTaskCompletion(&user, true)
	engine.ApplyTaskCompletion(&user, true)

	assert.Equal(t, 1, user.Streak)
}

func TestStreakNextDayIncrements(t *testing.T) {
	engine := NewEngine(newTestDB(t))

	user := models.User{}
	engine.Now = fixedNow(day(0))
	engine.ApplyTaskCompletion(&user, true)

	engine.Now = fixedNow(day(1))
	engine.ApplyTaskCompletion(&user, true)

	assert.Equal(t, 2, user.Streak)
}

func TestStreakGapResets(t *testing.T) {
	engine := NewEngine(newTestDB(t))

	user := models.User{}
	engine.Now = fixedNow(day(0))
	engine.ApplyTaskCompletion(&user, true)
	engine.Now = fixedNow(day(1))
	engine.ApplyTaskCompletion(&user, true)
	assert.Equal(t, 2, user.Streak)

	engine.Now = fixedNow(day(4))
	engine.ApplyTaskCompletion(&user, true)
	assert.Equal(t, 1, user.Streak)
}

func TestUncompletingNeverTouchesStreak(t *testing.T) {
	engine := NewEngine(newTestDB(t))

	user := models.User{}
	engine.Now = fixedNow(day(0))
	engine.ApplyTaskCompletion(&user, true)
	lastActive := *user.LastActiveDate

	engine.Now = fixedNow(day(5))
	engine.ApplyTaskCompletion(&user, false)

	assert.Equal(t, 1, user.Streak)
	assert.Equal(t, lastActive, *user.LastActiveDate)
}

func TestCheckBadgesFirstEvaluation(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	engine.Now = fixedNow(day(0))

	user := models.User{Name: "test", Email: "badges@example.com", PasswordHash: "x", Level: 1}
	require.NoError(t, db.Create(&user).Error)

	// Без выполненных задач дается только EARLY_BIRD
	newBadge, err := engine.CheckBadges(&user)
	require.NoError(t, err)
	require.NotNil(t, newBadge)
	assert.Equal(t, "EARLY_BIRD", newBadge.ID)
	assert.True(t, user.HasBadge("EARLY_BIRD"))
	assert.False(t, user.HasBadge("TASK_ROOKIE"))
}

func TestCheckBadgesReturnsFirstNewInRuleOrder(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	engine.Now = fixedNow(day(0))

	user := models.User{Name: "test", Email: "order@example.com", PasswordHash: "x", Level: 5, Streak: 7}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.Task{UserID: user.ID, Text: "done", IsCompleted: true}).Error)

	// Квалифицируются сразу EARLY_BIRD, TASK_ROOKIE, STREAK_WARRIOR и LEVEL_5_BOSS:
	// показывается первый по порядку правил, но сохраняются все
	newBadge, err := engine.CheckBadges(&user)
	require.NoError(t, err)
	require.NotNil(t, newBadge)
	assert.Equal(t, "EARLY_BIRD", newBadge.ID)

	for _, id := range []string{"EARLY_BIRD", "TASK_ROOKIE", "STREAK_WARRIOR", "LEVEL_5_BOSS"} {
		assert.True(t, user.HasBadge(id), id)
	}
	assert.False(t, user.HasBadge("TASK_MASTER"))
}

func TestBadgeMonotonicity(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	engine.Now = fixedNow(day(0))

	user := models.User{Name: "test", Email: "mono@example.com", PasswordHash: "x", Level: 1, Streak: 7}
	require.NoError(t, db.Create(&user).Error)

	_, err := engine.CheckBadges(&user)
	require.NoError(t, err)
	require.True(t, user.HasBadge("STREAK_WARRIOR"))

	// Стрик упал ниже порога - бейдж не отзывается
	user.Streak = 0
	newBadge, err := engine.CheckBadges(&user)
	require.NoError(t, err)
	assert.Nil(t, newBadge)
	assert.True(t, user.HasBadge("STREAK_WARRIOR"))

	// Бейдж сохранен в базе
	var saved models.User
	require.NoError(t, db.First(&saved, user.ID).Error)
	assert.True(t, saved.HasBadge("STREAK_WARRIOR"))
}

func TestCheckBadgesIdempotent(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	engine.Now = fixedNow(day(0))

	user := models.User{Name: "test", Email: "idem@example.com", PasswordHash: "x", Level: 1}
	require.NoError(t, db.Create(&user).Error)

	_, err := engine.CheckBadges(&user)
	require.NoError(t, err)
	before := len(user.Badges)

	newBadge, err := engine.CheckBadges(&user)
	require.NoError(t, err)
	assert.Nil(t, newBadge)
	assert.Len(t, user.Badges, before)
}

func TestTaskMasterAtTenCompleted(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	engine.Now = fixedNow(day(0))

	user := models.User{Name: "test", Email: "master@example.com", PasswordHash: "x", Level: 1}
	require.NoError(t, db.Create(&user).Error)

	for i := 0; i < 10; i++ {
		require.NoError(t, db.Create(&models.Task{
			UserID:      user.ID,
			Text:        fmt.Sprintf("task %d", i),
			IsCompleted: true,
		}).Error)
	}

	_, err := engine.CheckBadges(&user)
	require.NoError(t, err)
	assert.True(t, user.HasBadge("TASK_MASTER"))
}
