package leaderboard

import (
	"math/rand"
	"strings"
)

// Picker selects one roast line for an inactive contributor. It is a
// strategy so tests can plug a deterministic (seeded) implementation; the
// default is unseeded and may repeat across runs, which is fine for banter.
type Picker func(pool []string, name string) string

// RandomPicker picks uniformly from the pool.
func RandomPicker(pool []string, name string) string {
	if len(pool) == 0 {
		return name
	}
	return render(pool[rand.Intn(len(pool))], name)
}

// SeededPicker returns a Picker backed by its own seeded source, for
// reproducible output in tests.
func SeededPicker(seed int64) Picker {
	r := rand.New(rand.NewSource(seed))
	return func(pool []string, name string) string {
		if len(pool) == 0 {
			return name
		}
		return render(pool[r.Intn(len(pool))], name)
	}
}

func render(line, name string) string {
	return strings.ReplaceAll(line, "{name}", name)
}

// Roasts is the static pool of humorous call-outs for contributors with zero
// completed tasks in the window.
var Roasts = []string{
	"{name} — last seen: never. Maybe on a holiday... that lasts all year?",
	"{name} completed as many tasks as there are unicorns in the wild.",
	"{name} — legend says they once did something, but nobody witnessed it.",
	"{name} achieved a perfect zero. Respect for the consistency!",
	"{name} follows a bold strategy: you can't fail a task you never pick up.",
	"{name} probably thinks Jira is a brand of coffee.",
	"{name} — expert at delegating tasks... to their future self.",
	"{name} treats deadlines as gentle suggestions, not commitments.",
	"{name} — procrastination champion of the year!",
	"{name} has as many tasks done as a sad empty spreadsheet.",
	"{name} appears in this project like John Cena — you can't see them.",
	"{name} is still looking for the Start button in Jira.",
	"{name} has more excuses on record than tasks.",
	"{name} — HR is still verifying whether they actually exist.",
	"{name} treats tickets like UFOs: believes in them, never saw one.",
	"{name} thinks a sprint is strictly a track-and-field event.",
	"{name} will be available right after one more episode.",
	"{name} reached production nirvana: complete emptiness.",
	"{name} — scientists report their output is lower than a rock's.",
	"{name} — if laziness were an Olympic sport, that's a gold medal.",
	"{name} spends more time writing excuses than writing anything else.",
	"{name} is like WiFi in a tunnel — we lost the connection.",
	"{name} uses the board like LinkedIn — present, but doing nothing.",
	"{name} thinks the backlog is a new restaurant downtown.",
	"{name} thinks a pull request is a plea to be pulled out of bed.",
	"{name} could star in the project's edition of Where's Waldo.",
	"{name} is the project's yeti — everyone heard of them, nobody saw them.",
	"{name} — a sleeper agent still waiting for the activation code.",
	"{name} contributes as much as an empty mug to a coffee collection.",
	"{name}'s favourite song is clearly The Sound of Silence.",
	"{name} discovered how to work without working. Science is stunned.",
	"{name} — if procrastination paid, they'd be a billionaire.",
	"{name} holds the cleanest commit history possible: perfectly empty.",
	"{name} treats tasks like birthdays — remembers them once a year.",
	"{name} thinks feedback is a new fast-food chain.",
	"{name} is a Schrödinger's dev — simultaneously working and not.",
	"{name} is so good at hiding that satellites can't find them.",
	"{name} — last seen during recruitment.",
	"{name} shows up less often than rain in the Sahara.",
	"{name} completed an impressive number of tasks: zero. Such discipline!",
	"{name} works by the NADA method: Never Actually Do Anything.",
	"{name} achieved zen through the total absence of output.",
}
