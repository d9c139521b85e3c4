package ai

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Нормализатор достает JSON из шумного текста модели: срезает Markdown-ограждения,
// выделяет внешний объект или массив, разбирает строго. Для списков задач
// допустимые формы проверяются в фиксированном порядке предпочтения:
// голый массив -> {"tasks": [...]} -> {"data": [...]} -> одиночный объект ->
// первое поле-массив.

// TaskCandidate - пара {roadmapId, text} из ответа модели.
// roadmapId модель может вернуть числом или строкой.
type TaskCandidate struct {
	RoadmapID uint   `json:"roadmapId"`
	Text      string `json:"text"`
}

func (t *TaskCandidate) UnmarshalJSON(data []byte) error {
	var aux struct {
		RoadmapID interface{} `json:"roadmapId"`
		Text      string      `json:"text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Text = aux.Text
	switch v := aux.RoadmapID.(type) {
	case float64:
		t.RoadmapID = uint(v)
	case string:
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			t.RoadmapID = uint(n)
		}
	}
	return nil
}

// RoadmapPayload - ожидаемая форма сгенерированного роадмапа
type RoadmapPayload struct {
	Title       string        `json:"title"`
	Summary     string        `json:"summary"`
	SalaryRange string        `json:"salary_range"`
	GrowthScore float64       `json:"growth_score"`
	Steps       []StepPayload `json:"steps"`
}

type StepPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	Resources   []string `json:"resources"`
}

// ExtractRoadmap разбирает ответ модели в RoadmapPayload
func ExtractRoadmap(raw string) (*RoadmapPayload, error) {
	span, err := extractSpan(raw)
	if err != nil {
		return nil, err
	}

	var payload RoadmapPayload
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil, &MalformedResponseError{Raw: raw}
	}
	return &payload, nil
}

// ExtractValue разбирает первый валидный JSON-объект или массив из текста
func ExtractValue(raw string) (interface{}, error) {
	span, err := extractSpan(raw)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal([]byte(span), &value); err != nil {
		return nil, &MalformedResponseError{Raw: raw}
	}
	return value, nil
}

// ExtractTaskCandidates разбирает ответ модели в список кандидатов задач
func ExtractTaskCandidates(raw string) ([]TaskCandidate, error) {
	span, err := extractSpan(raw)
	if err != nil {
		return nil, err
	}

	// 1. Голый массив
	if strings.HasPrefix(span, "[") {
		var list []TaskCandidate
		if json.Unmarshal([]byte(span), &list) == nil {
			return list, nil
		}
		return nil, &MalformedResponseError{Raw: raw}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, &MalformedResponseError{Raw: raw}
	}

	// 2. Именованная обертка
	for _, key := range []string{"tasks", "data"} {
		if inner, ok := obj[key]; ok {
			var list []TaskCandidate
			if json.Unmarshal(inner, &list) == nil {
				return list, nil
			}
		}
	}

	// 3. Одиночный объект вместо массива
	if _, hasID := obj["roadmapId"]; hasID {
		var single TaskCandidate
		if json.Unmarshal([]byte(span), &single) == nil {
			return []TaskCandidate{single}, nil
		}
	}
	if _, hasText := obj["text"]; hasText {
		var single TaskCandidate
		if json.Unmarshal([]byte(span), &single) == nil {
			return []TaskCandidate{single}, nil
		}
	}

	// 4. Первое поле со значением-массивом (ключи сортируем для детерминизма)
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var list []TaskCandidate
		if json.Unmarshal(obj[key], &list) == nil {
			return list, nil
		}
	}

	return nil, &MalformedResponseError{Raw: raw}
}

// extractSpan срезает Markdown-ограждения и возвращает срез текста от первой
// открывающей скобки до последней соответствующей закрывающей
func extractSpan(raw string) (string, error) {
	cleaned := stripFences(raw)

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	start := objStart
	closer := byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start < 0 {
		return "", &MalformedResponseError{Raw: raw}
	}

	end := strings.LastIndexByte(cleaned, closer)
	if end <= start {
		return "", &MalformedResponseError{Raw: raw}
	}

	return cleaned[start : end+1], nil
}

func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
