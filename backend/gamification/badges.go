package gamification

// Badge описывает достижение и условие его получения
type Badge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
	Icon string `json:"icon"`
}

// BadgeStats - снимок агрегатов, по которым оцениваются условия бейджей
type BadgeStats struct {
	TasksCompleted int64
	Streak         int
	Level          int
}

type badgeRule struct {
	Badge     Badge
	Qualifies func(s BadgeStats) bool
}

// Порядок правил фиксирован: при одновременном получении нескольких бейджей
// пользователю показывается первый новый по этому порядку.
var badgeRules = []badgeRule{
	{
		Badge:     Badge{ID: "EARLY_BIRD", Name: "Early Bird", Desc: "Joined the platform", Icon: "🐦"},
		Qualifies: func(s BadgeStats) bool { return true },
	},
	{
		Badge:     Badge{ID: "TASK_ROOKIE", Name: "Task Rookie", Desc: "Completed your first task", Icon: "📝"},
		Qualifies: func(s BadgeStats) bool { return s.TasksCompleted >= 1 },
	},
	{
		Badge:     Badge{ID: "TASK_MASTER", Name: "Task Master", Desc: "Completed 10 tasks", Icon: "🏆"},
		Qualifies: func(s BadgeStats) bool { return s.TasksCompleted >= 10 },
	},
	{
		Badge:     Badge{ID: "STREAK_WARRIOR", Name: "Streak Warrior", Desc: "Reached a 7-day streak", Icon: "🔥"},
		Qualifies: func(s BadgeStats) bool { return s.Streak >= 7 },
	},
	{
		Badge:     Badge{ID: "LEVEL_5_BOSS", Name: "Level 5 Boss", Desc: "Reached Level 5", Icon: "👑"},
		Qualifies: func(s BadgeStats) bool { return s.Level >= 5 },
	},
}

// AllBadges возвращает каталог всех бейджей в фиксированном порядке
func AllBadges() []Badge {
	badges := make([]Badge, 0, len(badgeRules))
	for _, rule := range badgeRules {
		badges = append(badges, rule.Badge)
	}
	return badges
}
