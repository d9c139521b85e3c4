package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"project/backend/models"

	"gorm.io/gorm"
)

// Фокус после завершения всех этапов роадмапа
const masteryFocusTitle = "Advanced Mastery & Interview Prep"
const masteryFocusDesc = "You have finished the roadmap. Focus on building complex projects."

// Фолбэк для id, который не удалось разрешить в роадмап пользователя
const genericFallbackText = "Review your current roadmap milestone."

// Ротация "персон" инструктора - влияет только на промпт, нигде не хранится
var personas = []string{
	"Act as a strict Coding Bootcamp Instructor.",
	"Act as a hands-on Builder: every task must end with something runnable.",
	"Act as a Debugging Coach: frame tasks around breaking and fixing code.",
	"Act as a Software Architect: frame tasks around structure and design decisions.",
	"Act as a Project Mentor: frame tasks as small features of a real project.",
}

func randomPersona() string {
	return personas[rand.Intn(len(personas))]
}

// TaskGenerator выдает ровно одну ежедневную задачу на каждый запрошенный
// роадмап. Кандидаты от модели сверяются с историей задач пользователя,
// дубликаты и недостачу закрывает детерминированный фолбэк - эта операция
// никогда не падает из-за провайдера.
type TaskGenerator struct {
	DB       *gorm.DB
	Provider Provider
	Logger   *log.Logger

	// PersonaFn подменяется в тестах на детерминированную
	PersonaFn func() string
	// Длина префикса для проверки на дубликат
	DedupPrefixLen int
	// Сколько последних задач попадает в блок-лист промпта
	BlocklistLimit int
}

func NewTaskGenerator(db *gorm.DB, provider Provider, logger *log.Logger) *TaskGenerator {
	return &TaskGenerator{
		DB:             db,
		Provider:       provider,
		Logger:         logger,
		PersonaFn:      randomPersona,
		DedupPrefixLen: 15,
		BlocklistLimit: 50,
	}
}

type roadmapContext struct {
	ID           uint   `json:"id"`
	Role         string `json:"role"`
	CurrentFocus string `json:"currentFocus"`
	Description  string `json:"description"`
}

// Suggest генерирует и сохраняет по одной задаче на каждый роадмап из списка
func (g *TaskGenerator) Suggest(ctx context.Context, userID uint, roadmapIDs []uint) ([]models.Task, error) {
	if len(roadmapIDs) == 0 {
		return nil, ErrInvalidInput
	}

	// Загружаем только роадмапы, принадлежащие пользователю
	var roadmaps []models.Roadmap
	if err := g.DB.
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC") }).
		Where("id IN ? AND user_id = ?", roadmapIDs, userID).
		Find(&roadmaps).Error; err != nil {
		return nil, err
	}
	if len(roadmaps) == 0 {
		return nil, ErrNotFound
	}

	byID := make(map[uint]*models.Roadmap, len(roadmaps))
	for i := range roadmaps {
		byID[roadmaps[i].ID] = &roadmaps[i]
	}

	// Глобальная история задач пользователя - блок-лист против повторов
	blocked, err := g.loadBlocklist(userID)
	if err != nil {
		return nil, err
	}

	candidates := g.requestCandidates(ctx, roadmaps, blocked)

	// Сверка: ровно одна задача на каждый запрошенный id
	var tasks []models.Task
	for _, id := range roadmapIDs {
		roadmap, ok := byID[id]
		if !ok {
			// Не найден или чужой: задача без привязки, чтобы на N id
			// всегда пришло ровно N задач
			tasks = append(tasks, models.Task{
				UserID: userID,
				Text:   genericFallbackText,
			})
			continue
		}

		text := g.pickText(id, candidates, blocked, roadmap)
		roadmapID := id
		tasks = append(tasks, models.Task{
			UserID:    userID,
			RoadmapID: &roadmapID,
			Text:      text,
		})
	}

	if err := g.DB.Create(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// requestCandidates делает один батч-вызов провайдера на все роадмапы.
// Любая ошибка дает пустой список кандидатов - дальше сработает фолбэк.
func (g *TaskGenerator) requestCandidates(ctx context.Context, roadmaps []models.Roadmap, blocked []string) []TaskCandidate {
	contexts := make([]roadmapContext, 0, len(roadmaps))
	for i := range roadmaps {
		focusTitle, focusDesc := currentFocus(&roadmaps[i])
		contexts = append(contexts, roadmapContext{
			ID:           roadmaps[i].ID,
			Role:         roadmaps[i].Title,
			CurrentFocus: focusTitle,
			Description:  focusDesc,
		})
	}

	prompt := g.buildTaskPrompt(contexts, blocked)

	raw, err := g.Provider.GenerateJSON(ctx, prompt)
	if err != nil {
		g.logf("task generation: provider call failed: %v", err)
		return nil
	}

	candidates, err := ExtractTaskCandidates(raw)
	if err != nil {
		g.logf("task generation: %v", err)
		return nil
	}
	return candidates
}

// pickText принимает кандидата, если он есть и не дубликат, иначе фолбэк
func (g *TaskGenerator) pickText(roadmapID uint, candidates []TaskCandidate, blocked []string, roadmap *models.Roadmap) string {
	for _, candidate := range candidates {
		if candidate.RoadmapID != roadmapID || strings.TrimSpace(candidate.Text) == "" {
			continue
		}
		if g.isDuplicate(candidate.Text, blocked) {
			break
		}
		return candidate.Text
	}

	focusTitle, _ := currentFocus(roadmap)
	return fmt.Sprintf("Practice %s: Create a small demo using these concepts.", focusTitle)
}

// isDuplicate: префикс кандидата (без учета регистра) встречается
// в любой из заблокированных задач
func (g *TaskGenerator) isDuplicate(text string, blocked []string) bool {
	// Режем по рунам, чтобы не разорвать многобайтовый символ
	prefix := []rune(strings.ToLower(text))
	if len(prefix) > g.DedupPrefixLen {
		prefix = prefix[:g.DedupPrefixLen]
	}
	for _, b := range blocked {
		if strings.Contains(b, string(prefix)) {
			return true
		}
	}
	return false
}

func (g *TaskGenerator) loadBlocklist(userID uint) ([]string, error) {
	var texts []string
	if err := g.DB.Model(&models.Task{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(g.BlocklistLimit).
		Pluck("text", &texts).Error; err != nil {
		return nil, err
	}
	for i := range texts {
		texts[i] = strings.ToLower(texts[i])
	}
	return texts, nil
}

func currentFocus(roadmap *models.Roadmap) (title, desc string) {
	if step := roadmap.CurrentStep(); step != nil {
		return step.Title, step.Description
	}
	return masteryFocusTitle, masteryFocusDesc
}

// marshalForPrompt сериализует без HTML-экранирования: модель должна видеть
// "&" как есть, а не юникод-последовательность
func marshalForPrompt(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "[]"
	}
	return strings.TrimSpace(buf.String())
}

func (g *TaskGenerator) buildTaskPrompt(contexts []roadmapContext, blocked []string) string {
	contextJSON := marshalForPrompt(contexts)
	blockedJSON := marshalForPrompt(blocked)

	return fmt.Sprintf(`
%s
I have selected %d learning paths.

You must generate EXACTLY ONE unique daily task for EACH path.

CONTEXT:
%s

CRITICAL RULES:
1. Strict Progression: look at "currentFocus" and stick exactly to that topic.
   Do not generate tasks that are too easy or too advanced for it.
2. Zero Duplicates: the user has already done these tasks: %s.
   Do not repeat anything similar.
3. Actionable: the task must be specific practice (e.g. "Build a Navbar using Flexbox").
4. One-to-One: return exactly one task per roadmap id provided.

OUTPUT FORMAT (JSON Array):
[
  { "roadmapId": 1, "text": "..." }
]
`, g.PersonaFn(), len(contexts), contextJSON, blockedJSON)
}

func (g *TaskGenerator) logf(format string, args ...interface{}) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
	}
}
