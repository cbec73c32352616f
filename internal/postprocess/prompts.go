package postprocess

import (
	"sort"

	"github.com/yoralex/video-transcribe/internal/utils"
)

// Preset identifies a built-in prompt pair.
type Preset string

const (
	PresetITMeetingSummary  Preset = "it_meeting_summary"
	PresetScreencastCleanup Preset = "screencast_cleanup"
)

// PromptTemplate holds the system prompt and a user prompt template.
// The user template carries {placeholder} markers filled in by the
// processor before the LLM call.
type PromptTemplate struct {
	System string
	User   string
}

var presets = map[Preset]PromptTemplate{
	PresetITMeetingSummary: {
		System: `Ты - профессиональный ассистент для создания сводок IT встреч.

Твоя задача:
- Определить участников по упоминаниям в диалоге
- Выделить ключевые темы (не более 5)
- Извлечь конкретные решения
- Найти action items с ответственными и сроками
- Очистить текст от мусора (слова-паразиты, повторения)

Пиши на русском языке. Используй markdown форматирование.`,
		User: `Создай структурированную сводку IT встречи на основе следующего транскрипта.

**Информация о транскрипте:**
- Модель: {model}
- Длительность: {duration} секунд ({duration_minutes} минут)

**Транскрипт:**
` + "```" + `
{transcript}
` + "```" + `

**Формат вывода (строго следуй структуре):**

` + "```markdown" + `
## Сводка встречи

**Модель:** {model}
**Длительность:** {duration_formatted}
**Дата:** {date}

---

### Участники
(список участников, определи по контексту)

### Обсуждаемые темы
- Тема 1 — краткое описание
- Тема 2 — краткое описание
- ...

### Ключевые решения
- Решение 1
- Решение 2

### Action Items
| Кто | Что | Срок |
|-----|-----|------|
| ... | ... | ... |

### Следующие шаги
- Шаг 1
- Шаг 2

### Открытые вопросы
- Вопрос 1
- Вопрос 2
` + "```" + `

Извлеки максимум пользы из текста. Не выдумывай информацию, которой нет в транскрипте.`,
	},

	PresetScreencastCleanup: {
		System: `Ты - ассистент для преобразования скринкастов в структурированные текстовые туториалы.

Твоя задача:
- Убрать слова-паразиты, повторы, всякие "эээ", "ммм", "короче"
- Структурировать свободную речь в логические блоки
- Сформировать понятные заголовки для каждого этапа
- Составить вступление, объясняющее суть видео
- Добавить резюме с ключевыми выводами

Текст должен быть читабельным и полезным для самостоятельного изучения.`,
		User: `Преобразуй транскрипт скринкаста в структурированный туториал.

**Информация о транскрипте:**
- Модель: {model}
- Длительность: {duration} секунд ({duration_minutes} минут)

**Транскрипт:**
` + "```" + `
{transcript}
` + "```" + `

**Формат вывода (строго следуй структуре):**

` + "```markdown" + `
# [Придумай понятное название на основе содержания]

> Скринкаст, длительность: {duration_formatted}

## О чем это видео
(Вступительный блок 2-4 предложения, объясняющие суть видео и для кого оно)

---

## Содержание

### Шаг 1: [Ясный заголовок первого этапа]
(Описание первого блока контента без слов-паразитов, в повествовательном стиле)

### Шаг 2: [Ясный заголовок второго этапа]
(Описание второго блока контента)

... (продолжай для всех логических блоков)

## Резюме
(2-3 предложения с ключевыми выводами — что зритель должен был вынести из видео)
` + "```" + `

Текст должен быть чистым, структурированным и готовым к чтению.`,
	},
}

// GetPreset returns the template for a preset.
func GetPreset(p Preset) (PromptTemplate, error) {
	t, ok := presets[p]
	if !ok {
		return PromptTemplate{}, utils.E(utils.CodeInvalidArgument, "postprocess.GetPreset",
			"unknown preset "+string(p), nil)
	}
	return t, nil
}

// ListPresets returns the available preset names sorted.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for p := range presets {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}
