package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studypace/studypace/internal/filter"
	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

// cardResponse is the wire shape of a scheduling card.
type cardResponse struct {
	QuestionUID   string  `json:"questionUid"`
	State         string  `json:"state"`
	DueTs         int64   `json:"dueTs"`
	LastReviewTs  *int64  `json:"lastReviewTs,omitempty"`
	Reps          int32   `json:"reps"`
	Lapses        int32   `json:"lapses"`
	Stability     float64 `json:"stability"`
	Difficulty    float64 `json:"difficulty"`
	ElapsedDays   float64 `json:"elapsedDays"`
	ScheduledDays float64 `json:"scheduledDays"`
	LearningStep  int32   `json:"learningStep"`
	Version       int32   `json:"version"`
}

func convertCard(card *store.Card, questionUID string) *cardResponse {
	return &cardResponse{
		QuestionUID:   questionUID,
		State:         card.State,
		DueTs:         card.DueTs,
		LastReviewTs:  card.LastReviewTs,
		Reps:          card.Reps,
		Lapses:        card.Lapses,
		Stability:     card.Stability,
		Difficulty:    card.Difficulty,
		ElapsedDays:   card.ElapsedDays,
		ScheduledDays: card.ScheduledDays,
		LearningStep:  card.LearningStep,
		Version:       card.Version,
	}
}

func (s *APIV1Service) findVisibleQuestion(c echo.Context) (*store.Question, error) {
	uid := c.Param("question")
	return s.Store.GetQuestion(c.Request().Context(), &store.FindQuestion{
		UID:         &uid,
		OnlyVisible: true,
	})
}

// GetCard returns the user's scheduling card for one question. A question
// the user never attempted yields 404; the card does not exist yet.
func (s *APIV1Service) GetCard(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := pathInt32(c, "user")
	if err != nil {
		return replyBadRequest(c, "invalid user id")
	}
	question, err := s.findVisibleQuestion(c)
	if err != nil {
		return replyInternal(c, err)
	}
	if question == nil {
		return replyNotFound(c, "question not found")
	}

	card, err := s.Store.GetCard(ctx, &store.FindCard{UserID: &userID, QuestionID: &question.ID})
	if err != nil {
		return replyInternal(c, err)
	}
	if card == nil {
		return replyNotFound(c, "card not found")
	}
	return c.JSON(http.StatusOK, convertCard(card, question.UID))
}

// putCardRequest is a direct card write, used by imports and repair tooling.
// Writes to an existing card must carry the version the caller read.
type putCardRequest struct {
	State         string  `json:"state"`
	DueTs         int64   `json:"dueTs"`
	LastReviewTs  *int64  `json:"lastReviewTs"`
	Reps          int32   `json:"reps"`
	Lapses        int32   `json:"lapses"`
	Stability     float64 `json:"stability"`
	Difficulty    float64 `json:"difficulty"`
	ElapsedDays   float64 `json:"elapsedDays"`
	ScheduledDays float64 `json:"scheduledDays"`
	LearningStep  int32   `json:"learningStep"`
	Version       int32   `json:"version"`
}

// PutCard upserts a card row wholesale. The payload is validated through the
// same row-to-domain mapping the scheduler uses, so malformed memory state
// can never be persisted.
func (s *APIV1Service) PutCard(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := pathInt32(c, "user")
	if err != nil {
		return replyBadRequest(c, "invalid user id")
	}
	question, err := s.findVisibleQuestion(c)
	if err != nil {
		return replyInternal(c, err)
	}
	if question == nil {
		return replyNotFound(c, "question not found")
	}

	request := &putCardRequest{}
	if err := c.Bind(request); err != nil {
		return replyBadRequest(c, "malformed request body")
	}
	candidate := &store.Card{
		UserID:        userID,
		QuestionID:    question.ID,
		State:         request.State,
		DueTs:         request.DueTs,
		LastReviewTs:  request.LastReviewTs,
		Reps:          request.Reps,
		Lapses:        request.Lapses,
		Stability:     request.Stability,
		Difficulty:    request.Difficulty,
		ElapsedDays:   request.ElapsedDays,
		ScheduledDays: request.ScheduledDays,
		LearningStep:  request.LearningStep,
	}
	srsCard, err := candidate.SRSCard()
	if err != nil {
		return replyBadRequest(c, err.Error())
	}

	existing, err := s.Store.GetCard(ctx, &store.FindCard{UserID: &userID, QuestionID: &question.ID})
	if err != nil {
		return replyInternal(c, err)
	}
	if existing == nil {
		created, err := s.Store.CreateCard(ctx, candidate)
		if err != nil {
			return replyInternal(c, err)
		}
		return c.JSON(http.StatusOK, convertCard(created, question.UID))
	}

	update := existing.UpdateFromSRS(srsCard)
	update.ExpectedVersion = request.Version
	updated, err := s.Store.UpdateCard(ctx, update)
	if err == store.ErrConcurrentUpdate {
		return replyConflict(c, "card was modified concurrently")
	}
	if err != nil {
		return replyInternal(c, err)
	}
	return c.JSON(http.StatusOK, convertCard(updated, question.UID))
}

// previewEntry is one rating's hypothetical outcome.
type previewEntry struct {
	State         string  `json:"state"`
	DueTs         int64   `json:"dueTs"`
	ScheduledDays float64 `json:"scheduledDays"`
	Stability     float64 `json:"stability"`
	Difficulty    float64 `json:"difficulty"`
}

// PreviewCard returns what each rating would do to the card right now,
// without persisting anything. Unattempted questions preview from a fresh
// card.
func (s *APIV1Service) PreviewCard(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := pathInt32(c, "user")
	if err != nil {
		return replyBadRequest(c, "invalid user id")
	}
	question, err := s.findVisibleQuestion(c)
	if err != nil {
		return replyInternal(c, err)
	}
	if question == nil {
		return replyNotFound(c, "question not found")
	}

	now := time.Now().UTC()
	row, err := s.Store.GetCard(ctx, &store.FindCard{UserID: &userID, QuestionID: &question.ID})
	if err != nil {
		return replyInternal(c, err)
	}
	if row == nil {
		row = store.NewCardRow(userID, question.ID, now)
	}
	srsCard, err := row.SRSCard()
	if err != nil {
		return replyInternal(c, err)
	}
	outcomes, err := s.Scheduler.Preview(srsCard, now)
	if err != nil {
		return replyInternal(c, err)
	}

	response := make(map[string]*previewEntry, len(outcomes))
	for rating, outcome := range outcomes {
		response[rating.String()] = &previewEntry{
			State:         outcome.State.String(),
			DueTs:         outcome.Due.Unix(),
			ScheduledDays: outcome.ScheduledDays,
			Stability:     outcome.Stability,
			Difficulty:    outcome.Difficulty,
		}
	}
	return c.JSON(http.StatusOK, response)
}

// ListDueCards returns the user's due cards, most overdue first. Optional
// query params: course (UID scope), asOf (RFC 3339 or unix seconds), and
// filter (a CEL expression over scheduling fields).
func (s *APIV1Service) ListDueCards(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := pathInt32(c, "user")
	if err != nil {
		return replyBadRequest(c, "invalid user id")
	}
	asOf, err := parseAsOf(c.QueryParam("asOf"), time.Now().UTC())
	if err != nil {
		return replyBadRequest(c, err.Error())
	}

	find := &store.FindCard{UserID: &userID}
	dueBefore := asOf.Unix()
	find.DueBefore = &dueBefore
	if courseUID := c.QueryParam("course"); courseUID != "" {
		course, err := s.Store.GetCourse(ctx, &store.FindCourse{UID: &courseUID})
		if err != nil {
			return replyInternal(c, err)
		}
		if course == nil {
			return replyNotFound(c, "course not found")
		}
		find.CourseID = &course.ID
	}

	var cardFilter *filter.CardFilter
	if expression := c.QueryParam("filter"); expression != "" {
		cardFilter, err = filter.CompileCardFilter(expression)
		if err != nil {
			return replyBadRequest(c, err.Error())
		}
	}

	cards, err := s.Store.ListCards(ctx, find)
	if err != nil {
		return replyInternal(c, err)
	}

	response := []*cardResponse{}
	for _, card := range cards {
		// NEW rows are due by construction but carry no memory state to
		// review; the due listing is for review work only.
		if card.State == srs.StateNew.String() {
			continue
		}
		question, err := s.Store.GetQuestion(ctx, &store.FindQuestion{
			ID:          &card.QuestionID,
			OnlyVisible: true,
		})
		if err != nil {
			return replyInternal(c, err)
		}
		if question == nil {
			continue
		}
		if cardFilter != nil {
			matched, err := s.matchCardFilter(cardFilter, card, asOf)
			if err != nil {
				return replyBadRequest(c, err.Error())
			}
			if !matched {
				continue
			}
		}
		response = append(response, convertCard(card, question.UID))
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIV1Service) matchCardFilter(f *filter.CardFilter, card *store.Card, asOf time.Time) (bool, error) {
	retention := 0.0
	if card.LastReviewTs != nil && card.Stability > 0 {
		elapsed := asOf.Sub(time.Unix(*card.LastReviewTs, 0)).Hours() / 24
		if elapsed < 0 {
			elapsed = 0
		}
		retention = s.Projector.Retrievability(card.Stability, elapsed)
	}
	return f.Matches(map[string]any{
		"state":        card.State,
		"reps":         int64(card.Reps),
		"lapses":       int64(card.Lapses),
		"stability":    card.Stability,
		"difficulty":   card.Difficulty,
		"overdue_days": asOf.Sub(time.Unix(card.DueTs, 0)).Hours() / 24,
		"retention":    retention,
	})
}
