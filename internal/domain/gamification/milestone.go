package gamification

import (
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK MILESTONES
// ══════════════════════════════════════════════════════════════════════════════

// Milestone is a streak length that pays a one-time XP bonus when crossed.
type Milestone struct {
	Days   int
	Bonus  int
	Reason stats.Reason
}

// DefaultMilestones are the standard streak milestones, ascending by day.
func DefaultMilestones() []Milestone {
	return []Milestone{
		{Days: 7, Bonus: 50, Reason: stats.ReasonStreakBonus7},
		{Days: 30, Bonus: 200, Reason: stats.ReasonStreakBonus30},
		{Days: 100, Bonus: 500, Reason: stats.ReasonStreakBonus100},
	}
}

// CrossedMilestones returns every milestone m with prevDays < m.Days &&
// m.Days <= newDays. A jump across several thresholds in one transition pays
// all of them; a reset never pays (newDays drops to 1).
func CrossedMilestones(milestones []Milestone, prevDays, newDays int) []Milestone {
	var crossed []Milestone
	for _, m := range milestones {
		if prevDays < m.Days && m.Days <= newDays {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// MilestoneBonus sums the bonus XP for all milestones crossed by the
// transition prevDays -> newDays.
func MilestoneBonus(milestones []Milestone, prevDays, newDays int) int {
	total := 0
	for _, m := range CrossedMilestones(milestones, prevDays, newDays) {
		total += m.Bonus
	}
	return total
}
