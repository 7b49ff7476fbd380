package services

import "zenpulse/internal/database"

// PepTalks are shown when the newest entry carries no encouragement of its own.
var PepTalks = []string{
	"🌟 Every expert was once a beginner. Your journey matters.",
	"💪 Small consistent actions create remarkable results.",
	"🧠 Your mind is your greatest ally. Treat it with kindness.",
	"🎯 Progress over perfection. You're exactly where you need to be.",
	"🌱 Growth happens in the uncomfortable spaces between comfort zones.",
	"✨ You are the author of your story. Choose the plot wisely.",
	"🔮 The best time to start was yesterday. The next best time is now.",
	"💝 Self-compassion is not selfish. It's necessary for sustainable growth.",
}

// PepTalk returns the AI pep talk of the newest entry, or a random line from
// PepTalks.
func PepTalk(entries []database.Entry, mapper *MoodMapper) string {
	var newest *database.Entry
	for i := range entries {
		if newest == nil || entries[i].Date.After(newest.Date) {
			newest = &entries[i]
		}
	}
	if newest != nil && newest.AIPepTalk != "" {
		return newest.AIPepTalk
	}
	return RandomPepTalk(mapper)
}

func RandomPepTalk(mapper *MoodMapper) string {
	return PepTalks[mapper.Intn(len(PepTalks))]
}
