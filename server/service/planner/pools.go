package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

// Category labels why a question landed in the plan.
type Category string

const (
	CategoryReview  Category = "review"
	CategoryCurrent Category = "current"
	CategoryBridge  Category = "bridge"
	CategoryStretch Category = "stretch"
)

// PlanItem is one selected question with its selection justification.
type PlanItem struct {
	QuestionID    int32    `json:"questionId"`
	QuestionUID   string   `json:"questionUid"`
	CourseUID     string   `json:"courseUid"`
	Category      Category `json:"category"`
	PriorityScore float64  `json:"priorityScore"`
	WhySelected   string   `json:"whySelected"`
}

// coursePools holds one course's candidates, already ordered within each
// pool: most overdue first for review, syllabus order for the rest.
type coursePools struct {
	course  *store.Course
	review  []PlanItem
	current []PlanItem
	bridge  []PlanItem
	stretch []PlanItem

	visibleQuestions int
}

func (p *coursePools) total() int {
	return len(p.review) + len(p.current) + len(p.bridge) + len(p.stretch)
}

// gatherCoursePools builds the four candidate pools for one course.
//
// The pace offset shifts the windows: a learner who is behind (negative
// offset) has due reviews pulled forward a little and a bridge pool of
// older never-attempted material; a learner at or ahead of pace has no
// bridge pool at all.
func gatherCoursePools(ctx context.Context, st Store, userID int32, course *store.Course, now time.Time, paceOffsetDays int, cfg Config) (*coursePools, error) {
	pools := &coursePools{course: course}

	questions, err := st.ListQuestions(ctx, &store.FindQuestion{
		CourseID:    &course.ID,
		OnlyVisible: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	pools.visibleQuestions = len(questions)
	if len(questions) == 0 {
		return pools, nil
	}

	topics, err := st.ListTopics(ctx, &store.FindTopic{CourseID: &course.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	topicByID := make(map[int32]*store.Topic, len(topics))
	for _, topic := range topics {
		topicByID[topic.ID] = topic
	}

	cards, err := st.ListCards(ctx, &store.FindCard{UserID: &userID, CourseID: &course.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	cardByQuestion := make(map[int32]*store.Card, len(cards))
	for _, card := range cards {
		cardByQuestion[card.QuestionID] = card
	}
	questionByID := make(map[int32]*store.Question, len(questions))
	for _, question := range questions {
		questionByID[question.ID] = question
	}

	// Review pool: due review/relearning cards, optionally pulling
	// slightly-future reviews forward when the learner is behind.
	reviewCutoff := now
	if paceOffsetDays < 0 {
		pullForward := -paceOffsetDays
		if pullForward > cfg.MaxPullForwardDays {
			pullForward = cfg.MaxPullForwardDays
		}
		reviewCutoff = now.AddDate(0, 0, pullForward)
	}
	dueCards := []*store.Card{}
	for _, card := range cards {
		if card.State != srs.StateReview.String() && card.State != srs.StateRelearning.String() {
			continue
		}
		if card.DueTs > reviewCutoff.Unix() {
			continue
		}
		if _, visible := questionByID[card.QuestionID]; !visible {
			continue
		}
		dueCards = append(dueCards, card)
	}
	sort.Slice(dueCards, func(i, j int) bool {
		if dueCards[i].DueTs != dueCards[j].DueTs {
			return dueCards[i].DueTs < dueCards[j].DueTs
		}
		return dueCards[i].ID < dueCards[j].ID
	})
	for _, card := range dueCards {
		question := questionByID[card.QuestionID]
		overdueDays := now.Sub(time.Unix(card.DueTs, 0)).Hours() / 24
		pools.review = append(pools.review, PlanItem{
			QuestionID:    question.ID,
			QuestionUID:   question.UID,
			CourseUID:     course.UID,
			Category:      CategoryReview,
			PriorityScore: overdueDays,
			WhySelected:   reviewWhy(overdueDays),
		})
	}

	// The remaining pools walk the visible questions in syllabus order.
	currentFloor := now.AddDate(0, 0, -cfg.CurrentWindowDays)
	stretchCeil := now.AddDate(0, 0, cfg.StretchWindowDays)
	for _, question := range questions {
		topic := topicByID[question.TopicID]
		if topic == nil {
			continue
		}
		card := cardByQuestion[question.ID]
		covered := time.Unix(topic.CoveredTs, 0)

		switch {
		case !covered.After(now) && !covered.Before(currentFloor):
			if card == nil || (card.Reps <= 1 && card.State != srs.StateReview.String()) {
				pools.current = append(pools.current, PlanItem{
					QuestionID:  question.ID,
					QuestionUID: question.UID,
					CourseUID:   course.UID,
					Category:    CategoryCurrent,
					WhySelected: fmt.Sprintf("New material: %s covered %s", topic.Title, coveredAgo(now, covered)),
				})
			}
		case covered.Before(currentFloor):
			if card == nil && paceOffsetDays < 0 {
				daysAgo := int(math.Floor(now.Sub(covered).Hours() / 24))
				pools.bridge = append(pools.bridge, PlanItem{
					QuestionID:  question.ID,
					QuestionUID: question.UID,
					CourseUID:   course.UID,
					Category:    CategoryBridge,
					WhySelected: fmt.Sprintf("Catch-up: %s was covered %d days ago and never attempted", topic.Title, daysAgo),
				})
			}
		case covered.After(now) && !covered.After(stretchCeil):
			if card == nil {
				daysAhead := int(math.Ceil(covered.Sub(now).Hours() / 24))
				pools.stretch = append(pools.stretch, PlanItem{
					QuestionID:  question.ID,
					QuestionUID: question.UID,
					CourseUID:   course.UID,
					Category:    CategoryStretch,
					WhySelected: fmt.Sprintf("Stretch: %s is coming up in %d days", topic.Title, daysAhead),
				})
			}
		}
	}

	// Schedule-ordered pools get a rank-based score so the client can
	// re-sort without re-deriving the selection policy.
	scoreByRank(pools.current)
	scoreByRank(pools.bridge)
	scoreByRank(pools.stretch)

	return pools, nil
}

func reviewWhy(overdueDays float64) string {
	days := int(math.Floor(overdueDays))
	switch {
	case days >= 1:
		return fmt.Sprintf("Overdue by %d days", days)
	case overdueDays >= 0:
		return "Due today"
	default:
		return fmt.Sprintf("Due in %d days, pulled forward", int(math.Ceil(-overdueDays)))
	}
}

func coveredAgo(now, covered time.Time) string {
	days := int(math.Floor(now.Sub(covered).Hours() / 24))
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func scoreByRank(items []PlanItem) {
	for i := range items {
		items[i].PriorityScore = float64(len(items) - i)
	}
}
