// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package embedding

// genreVocabulary is the fixed, ordered genre vocabulary. Vector positions
// depend on this ordering, so entries must never be reordered; append only.
var genreVocabulary = []string{
	"action",
	"adventure",
	"animation",
	"comedy",
	"crime",
	"documentary",
	"drama",
	"family",
	"fantasy",
	"history",
	"horror",
	"music",
	"mystery",
	"romance",
	"sci-fi",
	"thriller",
	"war",
	"western",
}

// genreIndex maps a lowercase genre label to its vocabulary position.
var genreIndex = func() map[string]int {
	m := make(map[string]int, len(genreVocabulary))
	for i, g := range genreVocabulary {
		m[g] = i
	}
	// Common label variants seen across catalogs.
	m["science fiction"] = m["sci-fi"]
	m["science-fiction"] = m["sci-fi"]
	m["suspense"] = m["thriller"]
	return m
}()

// themeOrder fixes the theme vector layout.
var themeOrder = []string{
	"action", "drama", "mystery", "comedy", "thriller", "sci-fi", "horror", "romance",
}

// themeKeywords scores a synopsis against each theme. A theme's score is the
// fraction of its keywords found in the overview text.
var themeKeywords = map[string][]string{
	"action":   {"fight", "battle", "war", "mission", "explosive", "chase", "combat", "soldier"},
	"drama":    {"family", "relationship", "struggle", "life", "emotional", "journey", "loss"},
	"mystery":  {"mystery", "secret", "detective", "investigation", "clue", "disappearance"},
	"comedy":   {"funny", "hilarious", "comedy", "laugh", "awkward", "misadventure"},
	"thriller": {"danger", "conspiracy", "killer", "hunt", "tension", "escape", "survive"},
	"sci-fi":   {"space", "future", "alien", "robot", "technology", "planet", "dystopian"},
	"horror":   {"terror", "haunted", "demon", "nightmare", "evil", "supernatural", "curse"},
	"romance":  {"love", "romance", "heart", "passion", "wedding", "affair"},
}

// unknownSignal is the default for any contextual value missing from its
// lookup table.
const unknownSignal = 0.5

// moodSignal maps the current mood tag to an arousal-like scalar.
var moodSignal = map[string]float64{
	"relaxed":     0.2,
	"tired":       0.1,
	"neutral":     0.5,
	"curious":     0.6,
	"social":      0.7,
	"adventurous": 0.9,
	"excited":     1.0,
}

// timeOfDaySignal maps coarse day segments.
var timeOfDaySignal = map[string]float64{
	"morning":    0.2,
	"afternoon":  0.4,
	"evening":    0.8,
	"late_night": 1.0,
}

// dayOfWeekSignal distinguishes weekday routine from weekend leisure.
var dayOfWeekSignal = map[string]float64{
	"monday":    0.1,
	"tuesday":   0.2,
	"wednesday": 0.3,
	"thursday":  0.4,
	"friday":    0.7,
	"saturday":  1.0,
	"sunday":    0.9,
}

var seasonSignal = map[string]float64{
	"spring": 0.3,
	"summer": 0.6,
	"fall":   0.8,
	"autumn": 0.8,
	"winter": 1.0,
}

// bingeSignal maps binge-intensity categories.
var bingeSignal = map[string]float64{
	"low":    0.25,
	"medium": 0.5,
	"high":   0.9,
}

// lookupSignal returns the table value for a key, or unknownSignal for
// values the table does not know.
func lookupSignal(table map[string]float64, key string) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return unknownSignal
}
