package bot

import (
	"fmt"
	"strings"
	"time"

	"taskbot/internal/task"
)

const (
	textAccessDenied  = "🚫 Извини, у тебя нет доступа к этому боту.\n\nБот работает только для авторизованных пользователей."
	textNoTasks       = "У тебя пока нет задач. Добавь первую! 📝"
	textListFailed    = "❌ Ошибка при получении задач"
	textRateLimited   = "⏳ AI сервис временно перегружен.\nПожалуйста, попробуй через несколько секунд."
	textTaskFailed    = "❌ Не получилось обработать задачу.\nПопробуй переформулировать или попробуй позже."
	textVoiceFailed   = "❌ Не получилось обработать голосовое сообщение.\nПопробуй ещё раз или напиши текстом."
	textVoiceEmpty    = "❌ Не удалось распознать голосовое сообщение. Попробуй ещё раз!"
	textVoiceDisabled = "🎤 Голосовые сообщения сейчас не поддерживаются. Напиши задачу текстом."
	textTranscribing  = "🎤 Распознаю голосовое сообщение..."
)

func startText(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "друг"
	}
	return "Привет, " + name + "! 👋\n\n" +
		"Я — Умный Таск-менеджер с искусственным интеллектом.\n\n" +
		"Просто напиши мне задачу, и я:\n" +
		"• Пойму, что нужно сделать\n" +
		"• Распознаю дату и время (если указаны)\n" +
		"• Напомню тебе вовремя ⏰\n\n" +
		"Примеры:\n" +
		"• \"Напомни купить хлеба завтра в 9 утра\"\n" +
		"• \"Через час позвонить маме\"\n" +
		"• \"Сходить в спортзал\" (добавится в бэклог)\n\n" +
		"Можно и голосовым сообщением 🎤\n\n" +
		"Команды:\n" +
		"/mytasks — посмотреть свои задачи"
}

// confirmText is the reply after a task was stored.
func confirmText(t task.Task, loc *time.Location) string {
	if t.DueAt == nil {
		return "✅ Записал в список задач\n\n" +
			"📝 Задача: " + t.Text + "\n\n" +
			"💡 Если хочешь поставить напоминание, скажи когда!"
	}
	return fmt.Sprintf("✅ Поставил напоминание на %s\n\n📝 Задача: %s",
		t.DueAt.In(loc).Format("02.01.2006 в 15:04"), t.Text)
}

// RenderTaskList renders /mytasks: scheduled tasks first, then the backlog.
// Input is expected in store order (due ascending, backlog last).
func RenderTaskList(tasks []task.Task, loc *time.Location) string {
	if len(tasks) == 0 {
		return textNoTasks
	}
	var scheduled, backlog strings.Builder
	for _, t := range tasks {
		if t.DueAt != nil {
			fmt.Fprintf(&scheduled, "• %s — %s\n", t.DueAt.In(loc).Format("02.01.2006 15:04"), t.Text)
		} else {
			fmt.Fprintf(&backlog, "• %s\n", t.Text)
		}
	}

	var b strings.Builder
	b.WriteString("📋 Твои задачи:\n\n")
	if scheduled.Len() > 0 {
		b.WriteString("⏰ Запланированные:\n")
		b.WriteString(scheduled.String())
		b.WriteString("\n")
	}
	if backlog.Len() > 0 {
		b.WriteString("📝 Бэклог:\n")
		b.WriteString(backlog.String())
	}
	return strings.TrimRight(b.String(), "\n")
}
