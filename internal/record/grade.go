package record

type threshold struct {
	min   int
	grade string
}

var statGrades = []threshold{
	{1150, "SS+"}, {1100, "SS"}, {1050, "S+"}, {1000, "S"},
	{900, "A+"}, {800, "A"}, {700, "B+"}, {600, "B"},
	{500, "C+"}, {400, "C"}, {350, "D+"}, {300, "D"},
	{250, "E+"}, {200, "E"}, {150, "F+"}, {100, "F"},
}

// StatGrade returns the letter grade of a stat value.
func StatGrade(v int) string {
	for _, t := range statGrades {
		if v >= t.min {
			return t.grade
		}
	}
	return "G"
}

var scoreRanks = []threshold{
	{19200, "SS+"}, {17500, "SS"}, {15900, "S+"}, {14500, "S"},
	{12100, "A+"}, {10000, "A"}, {8200, "B+"}, {6500, "B"},
	{4900, "C+"}, {3500, "C"}, {2900, "D+"}, {2300, "D"},
	{1800, "E+"}, {1300, "E"}, {900, "F+"}, {600, "F"},
	{300, "G+"}, {0, "G"},
}

// MaxScore is the highest score with a defined rank.
const MaxScore = 19599

// ScoreRank returns the evaluation rank of a total score. Scores outside
// [0, MaxScore] have no rank and yield "".
func ScoreRank(score int) string {
	if score < 0 || score > MaxScore {
		return ""
	}
	for _, t := range scoreRanks {
		if score >= t.min {
			return t.grade
		}
	}
	return ""
}
