package utils

// Mood labels and faces shown next to a mood level.
func GetMoodLabel(level int) string {
	switch level {
	case 1:
		return "Very Low"
	case 2:
		return "Low"
	case 3:
		return "Neutral"
	case 4:
		return "Good"
	case 5:
		return "Excellent"
	default:
		return "Unknown"
	}
}

func GetMoodEmoji(level int, autoUpdated bool) string {
	if autoUpdated {
		return "🤖"
	}
	switch level {
	case 1:
		return "😞"
	case 2:
		return "😕"
	case 3:
		return "😐"
	case 4:
		return "🙂"
	case 5:
		return "😄"
	default:
		return "❔"
	}
}

func GetSentimentEmoji(sentiment string) string {
	switch sentiment {
	case "positive":
		return "🟢"
	case "negative":
		return "🔴"
	case "neutral":
		return "🟡"
	default:
		return "⚪"
	}
}
