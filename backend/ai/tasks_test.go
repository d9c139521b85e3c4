package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"project/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createRoadmapWithSteps(t *testing.T, db *gorm.DB, userID uint, title string, stepTitles []string, completedUpTo int) models.Roadmap {
	roadmap := models.Roadmap{UserID: userID, Title: title}
	for i, stepTitle := range stepTitles {
		roadmap.Steps = append(roadmap.Steps, models.Step{
			StepNumber: i + 1,
			Title:      stepTitle,
			Completed:  i < completedUpTo,
		})
	}
	require.NoError(t, db.Create(&roadmap).Error)
	return roadmap
}

func newTaskGenerator(db *gorm.DB, provider Provider) *TaskGenerator {
	generator := NewTaskGenerator(db, provider, nil)
	generator.PersonaFn = func() string { return personas[0] }
	return generator
}

func TestSuggestAcceptsValidCandidates(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "suggest@example.com")
	roadmap := createRoadmapWithSteps(t, db, user.ID, "Go Developer", []string{"Basics", "Concurrency"}, 1)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		// Текущий фокус - первый незавершенный этап
		assert.Contains(t, prompt, "Concurrency")
		return fmt.Sprintf(`[{"roadmapId": %d, "text": "Build a worker pool with channels"}]`, roadmap.ID), nil
	})

	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{roadmap.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Build a worker pool with channels", tasks[0].Text)
	require.NotNil(t, tasks[0].RoadmapID)
	assert.Equal(t, roadmap.ID, *tasks[0].RoadmapID)
	assert.Equal(t, user.ID, tasks[0].UserID)

	// Задача сохранена
	var count int64
	db.Model(&models.Task{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSuggestExactlyOneTaskPerRoadmapWhenProviderFails(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "provider-down@example.com")
	first := createRoadmapWithSteps(t, db, user.ID, "Go Developer", []string{"Basics"}, 0)
	second := createRoadmapWithSteps(t, db, user.ID, "SQL Analyst", []string{"Joins", "Window Functions"}, 1)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		return "", errors.New("timeout")
	})

	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	// Фолбэк ссылается на текущий этап каждого роадмапа
	assert.Equal(t, "Practice Basics: Create a small demo using these concepts.", tasks[0].Text)
	assert.Equal(t, "Practice Window Functions: Create a small demo using these concepts.", tasks[1].Text)
	assert.Equal(t, first.ID, *tasks[0].RoadmapID)
	assert.Equal(t, second.ID, *tasks[1].RoadmapID)
}

func TestSuggestFallbackOnMalformedOutput(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "malformed-tasks@example.com")
	roadmap := createRoadmapWithSteps(t, db, user.ID, "Go Developer", []string{"Generics"}, 0)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		return "here are your tasks, champ", nil
	})

	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{roadmap.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Practice Generics: Create a small demo using these concepts.", tasks[0].Text)
}

func TestSuggestFallbackOnMissingCandidate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "partial@example.com")
	first := createRoadmapWithSteps(t, db, user.ID, "Go Developer", []string{"Testing"}, 0)
	second := createRoadmapWithSteps(t, db, user.ID, "SQL Analyst", []string{"Indexes"}, 0)

	// Модель вернула задачу только для первого роадмапа
	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		return fmt.Sprintf(`[{"roadmapId": %d, "text": "Write table-driven tests"}]`, first.ID), nil
	})

	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Write table-driven tests", tasks[0].Text)
	assert.Equal(t, "Practice Indexes: Create a small demo using these concepts.", tasks[1].Text)
}

func TestSuggestRejectsDuplicateByPrefix(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "dup@example.com")
	roadmap := createRoadmapWithSteps(t, db, user.ID, "Frontend", []string{"Flexbox"}, 0)

	// В истории уже есть задача с таким началом
	require.NoError(t, db.Create(&models.Task{
		UserID: user.ID,
		Text:   "Build a Navbar using Flexbox and media queries",
	}).Error)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		return fmt.Sprintf(`[{"roadmapId": %d, "text": "BUILD A NAVBAR using CSS Grid"}]`, roadmap.ID), nil
	})

	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{roadmap.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	// Первые 15 символов совпали без учета регистра - кандидат отброшен
	assert.Equal(t, "Practice Flexbox: Create a small demo using these concepts.", tasks[0].Text)
}

func TestSuggestGenericFallbackForStaleRoadmapID(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "stale@example.com")
	roadmap := createRoadmapWithSteps(t, db, user.ID, "Go Developer", []string{"Basics"}, 0)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		return "", errors.New("down")
	})

	// Второй id не разрешается ни в один роадмап пользователя
	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{roadmap.ID, 99999})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Practice Basics: Create a small demo using these concepts.", tasks[0].Text)
	require.NotNil(t, tasks[0].RoadmapID)
	assert.Equal(t, roadmap.ID, *tasks[0].RoadmapID)

	// На мертвый id - общая задача без привязки к роадмапу
	assert.Equal(t, "Review your current roadmap milestone.", tasks[1].Text)
	assert.Nil(t, tasks[1].RoadmapID)

	var count int64
	db.Model(&models.Task{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestSuggestRejectsDuplicateWithMultibytePrefix(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "cyrillic@example.com")
	roadmap := createRoadmapWithSteps(t, db, user.ID, "Фронтенд", []string{"Флексбокс"}, 0)

	// Кириллица: 15 рун занимают больше 15 байт
	require.NoError(t, db.Create(&models.Task{
		UserID: user.ID,
		Text:   "Сверстай навбар на флексах с медиазапросами",
	}).Error)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		return fmt.Sprintf(`[{"roadmapId": %d, "text": "СВЕРСТАЙ НАВБАР на гридах"}]`, roadmap.ID), nil
	})

	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{roadmap.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Practice Флексбокс: Create a small demo using these concepts.", tasks[0].Text)
}

func TestSuggestMasterySentinelWhenAllStepsDone(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "mastery@example.com")
	roadmap := createRoadmapWithSteps(t, db, user.ID, "Go Developer", []string{"Basics", "Web"}, 2)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		// Амперсанд в промпте не должен превращаться в \u0026
		assert.Contains(t, prompt, "Advanced Mastery & Interview Prep")
		assert.NotContains(t, prompt, `\u0026`)
		return "", errors.New("down")
	})

	tasks, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{roadmap.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Practice Advanced Mastery & Interview Prep: Create a small demo using these concepts.", tasks[0].Text)
}

func TestSuggestOwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")
	roadmap := createRoadmapWithSteps(t, db, owner.ID, "Go Developer", []string{"Basics"}, 0)

	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		t.Fatal("provider must not be called for foreign roadmaps")
		return "", nil
	})

	_, err := newTaskGenerator(db, provider).Suggest(context.Background(), stranger.ID, []uint{roadmap.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSuggestEmptyInput(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "empty@example.com")

	_, err := newTaskGenerator(db, nil).Suggest(context.Background(), user.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSuggestBlocklistInPrompt(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "blocklist@example.com")
	roadmap := createRoadmapWithSteps(t, db, user.ID, "Go Developer", []string{"Maps"}, 0)

	require.NoError(t, db.Create(&models.Task{UserID: user.ID, Text: "Implement an LRU cache"}).Error)

	var seenPrompt string
	provider := ProviderFunc(func(ctx context.Context, prompt string, jsonMode bool) (string, error) {
		seenPrompt = prompt
		return fmt.Sprintf(`[{"roadmapId": %d, "text": "Build a word frequency counter"}]`, roadmap.ID), nil
	})

	_, err := newTaskGenerator(db, provider).Suggest(context.Background(), user.ID, []uint{roadmap.ID})
	require.NoError(t, err)
	assert.Contains(t, seenPrompt, "implement an lru cache")
	assert.Contains(t, seenPrompt, personas[0])
}
