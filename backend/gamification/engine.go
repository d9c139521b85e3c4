package gamification

import (
	"time"

	"project/backend/models"

	"gorm.io/gorm"
)

// Награды за выполнение
const (
	TaskXP = 10
	StepXP = 50
)

// Engine применяет игровые правила к пользователю: XP, уровень, стрик, бейджи.
// Now инжектируется, чтобы тесты могли управлять календарными днями.
type Engine struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{DB: db, Now: time.Now}
}

// ApplyTaskCompletion начисляет или снимает XP за задачу и обновляет стрик.
// Стрик меняется только при выполнении задачи, снятие отметки его не трогает.
func (e *Engine) ApplyTaskCompletion(user *models.User, completed bool) {
	if completed {
		user.XP += TaskXP
		e.updateStreak(user)
	} else {
		user.XP -= TaskXP
		if user.XP < 0 {
			user.XP = 0
		}
	}
	user.Level = LevelForXP(user.XP)
}

// ApplyStepCompletion начисляет или снимает XP за этап роадмапа.
// Этапы на стрик не влияют.
func (e *Engine) ApplyStepCompletion(user *models.User, completed bool) {
	if completed {
		user.XP += StepXP
	} else {
		user.XP -= StepXP
		if user.XP < 0 {
			user.XP = 0
		}
	}
	user.Level = LevelForXP(user.XP)
}

// LevelForXP пересчитывает уровень из накопленного XP
func LevelForXP(xp int) int {
	return xp/100 + 1
}

// updateStreak сравнивает календарные дни без учета времени суток
func (e *Engine) updateStreak(user *models.User) {
	today := truncateToDay(e.Now())

	if user.LastActiveDate == nil {
		user.Streak = 1
		user.LastActiveDate = &today
		return
	}

	last := truncateToDay(*user.LastActiveDate)
	switch daysBetween(last, today) {
	case 0:
		// уже был активен сегодня
	case 1:
		user.Streak++
		user.LastActiveDate = &today
	default:
		user.Streak = 1
		user.LastActiveDate = &today
	}
}

// CheckBadges оценивает условия бейджей по текущему состоянию пользователя,
// сохраняет все новые бейджи и возвращает первый новый для попапа в UI.
// Полученные ранее бейджи никогда не отзываются.
func (e *Engine) CheckBadges(user *models.User) (*Badge, error) {
	var tasksCompleted int64
	if err := e.DB.Model(&models.Task{}).
		Where("user_id = ? AND is_completed = ?", user.ID, true).
		Count(&tasksCompleted).Error; err != nil {
		return nil, err
	}

	stats := BadgeStats{
		TasksCompleted: tasksCompleted,
		Streak:         user.Streak,
		Level:          user.Level,
	}

	var newBadge *Badge
	awarded := false
	for _, rule := range badgeRules {
		if user.HasBadge(rule.Badge.ID) || !rule.Qualifies(stats) {
			continue
		}
		user.Badges = append(user.Badges, rule.Badge.ID)
		awarded = true
		if newBadge == nil {
			b := rule.Badge
			newBadge = &b
		}
	}

	if awarded {
		if err := e.DB.Save(user).Error; err != nil {
			return nil, err
		}
	}

	return newBadge, nil
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
