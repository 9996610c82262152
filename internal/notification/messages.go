package notification

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

const alertTitle = "⚠️ Attendance Alert!"

var reminderText = map[models.Slot][2]string{
	models.SlotMorningReminder: {"📅 Attendance reminder", "Good morning! Don't forget to mark today's attendance for your classes."},
	models.SlotEveningReminder: {"📝 Did you mark today?", "The day is almost over. Take a moment to mark today's attendance."},
}

var quotes = []string{
	"Success is the sum of small efforts, repeated day in and day out.",
	"The secret of getting ahead is getting started.",
	"Showing up is half the battle. Keep going!",
	"Every class you attend is an investment in yourself.",
	"Discipline is choosing between what you want now and what you want most.",
	"Small steps every day add up to big results.",
	"Don't watch the clock; do what it does. Keep going.",
	"Consistency beats intensity. Be there today.",
	"Your future self will thank you for the effort you put in today.",
	"It always seems impossible until it's done.",
}

// FormatPercent renders a percentage without trailing zeros, e.g. 70, 66.67.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// AlertMessage builds the below-target alert for a class.
func AlertMessage(className string, percentage float64, target int) (string, string) {
	body := fmt.Sprintf("Your attendance in '%s' is %s%%. Maintain at least %d%%.", className, FormatPercent(percentage), target)
	return alertTitle, body
}

// ReminderMessage builds the generic "mark today's attendance" reminder.
func ReminderMessage(slot models.Slot) (string, string) {
	text, ok := reminderText[slot]
	if !ok {
		text = reminderText[models.SlotMorningReminder]
	}
	return text[0], text[1]
}

// UrgencyMessage is sent instead of a quote when the user is behind overall.
func UrgencyMessage(average, target float64) (string, string) {
	body := fmt.Sprintf("Your average attendance is %s%% against a target of %s%%. Make it to class today!", FormatPercent(average), FormatPercent(target))
	return "🏃 Time to go to class", body
}

// QuoteMessage returns the motivational quote of the day.
func QuoteMessage(day time.Time) (string, string) {
	return "✨ Daily motivation", quotes[(day.YearDay()-1)%len(quotes)]
}
