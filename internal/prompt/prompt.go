// Package prompt builds the instruction text for task extraction.
//
// The output is a frozen contract with the extraction response normalizer:
// exactly two keys ("task", "datetime"), canonical datetime or null, JSON only.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"taskbot/internal/task"
)

// Build returns the system instruction anchored to now. It is a pure function:
// the same instant and zone label always yield the same text.
//
// zoneLabel is shown next to the anchor (e.g. "UTC+3"); now is rendered in its
// own location.
func Build(now time.Time, zoneLabel string) string {
	anchor := now.Format(task.TimeLayout)
	if strings.TrimSpace(zoneLabel) == "" {
		zoneLabel = now.Format("MST")
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrowNine := day.AddDate(0, 0, 1).Add(9 * time.Hour).Format(task.TimeLayout)
	inTwoHours := now.Add(2 * time.Hour).Format(task.TimeLayout)

	var b strings.Builder
	b.WriteString("Ты — умный парсер задач для таск-менеджера. Твоя задача — извлекать из сообщения пользователя описание задачи и время напоминания.\n\n")
	fmt.Fprintf(&b, "ТЕКУЩЕЕ ВРЕМЯ: %s (%s)\n\n", anchor, zoneLabel)
	b.WriteString("ПРАВИЛА:\n")
	b.WriteString("1. Извлеки суть задачи из сообщения пользователя\n")
	b.WriteString("2. Если указано время/дата — рассчитай точную дату и время в формате \"YYYY-MM-DD HH:MM:SS\" относительно текущего времени\n")
	b.WriteString("3. Понимай относительные времена: \"завтра\", \"через час\", \"в следующий вторник\", \"послезавтра в 15:00\" и т.д.\n")
	b.WriteString("4. Если время НЕ указано — верни null в поле datetime\n")
	b.WriteString("5. Возвращай ТОЛЬКО компактный JSON с ровно двумя ключами \"task\" и \"datetime\", без пояснений и без markdown блоков (```)\n\n")
	b.WriteString("ФОРМАТ ОТВЕТА:\n")
	b.WriteString(`{"task": "описание задачи", "datetime": "YYYY-MM-DD HH:MM:SS"}` + "\n\n")
	b.WriteString("ИЛИ если времени нет:\n")
	b.WriteString(`{"task": "описание задачи", "datetime": null}` + "\n\n")
	b.WriteString("ПРИМЕРЫ:\n")
	b.WriteString("Пользователь: \"Напомни купить хлеба завтра в 9 утра\"\n")
	fmt.Fprintf(&b, "Ответ: {\"task\": \"Купить хлеба\", \"datetime\": \"%s\"}\n\n", tomorrowNine)
	b.WriteString("Пользователь: \"Позвонить маме\"\n")
	b.WriteString("Ответ: {\"task\": \"Позвонить маме\", \"datetime\": null}\n\n")
	b.WriteString("Пользователь: \"Через 2 часа сходить в магазин\"\n")
	fmt.Fprintf(&b, "Ответ: {\"task\": \"Сходить в магазин\", \"datetime\": \"%s\"}", inTwoHours)
	return b.String()
}

// ZoneLabel renders a fixed location as "UTC+3" / "UTC-04:30" / "UTC".
func ZoneLabel(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	_, off := time.Date(2000, 1, 1, 0, 0, 0, 0, loc).Zone()
	if off == 0 {
		return "UTC"
	}
	sign := "+"
	if off < 0 {
		sign = "-"
		off = -off
	}
	h, m := off/3600, (off%3600)/60
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, h, m)
}
