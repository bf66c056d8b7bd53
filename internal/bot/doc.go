// Package bot turns chat updates into tasks.
//
// A Dispatcher reads transport updates, routes /start and /mytasks, and sends
// every other text (or transcribed voice message) through the extraction
// service. Extracted tasks are stored and, when they carry a due time,
// registered with the scheduler as one-shot reminders.
package bot
