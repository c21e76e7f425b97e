package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/studypace/studypace/server/internal/observability"
	"github.com/studypace/studypace/server/service/review"
	"github.com/studypace/studypace/store"
)

// recordAttemptRequest is one answered question presentation.
type recordAttemptRequest struct {
	UserID      int32  `json:"userId"`
	QuestionUID string `json:"questionUid"`
	IsCorrect   bool   `json:"isCorrect"`
	Confidence  string `json:"confidence"`
	TimeSpentMs int32  `json:"timeSpentMs"`
}

// RecordAttempt ingests an attempt: the rating is derived server-side, the
// card is rescheduled, and the attempt row is appended. The response is the
// card's new scheduling state.
func (s *APIV1Service) RecordAttempt(c echo.Context) error {
	ctx := c.Request().Context()
	request := &recordAttemptRequest{}
	if err := c.Bind(request); err != nil {
		return replyBadRequest(c, "malformed request body")
	}
	if request.UserID <= 0 {
		return replyBadRequest(c, "userId is required")
	}
	if request.QuestionUID == "" {
		return replyBadRequest(c, "questionUid is required")
	}

	question, err := s.Store.GetQuestion(ctx, &store.FindQuestion{
		UID:         &request.QuestionUID,
		OnlyVisible: true,
	})
	if err != nil {
		return replyInternal(c, err)
	}
	if question == nil {
		return replyNotFound(c, "question not found")
	}

	card, err := s.Review.RecordAttempt(ctx, &review.RecordAttemptRequest{
		UserID:      request.UserID,
		QuestionID:  question.ID,
		IsCorrect:   request.IsCorrect,
		Confidence:  request.Confidence,
		TimeSpentMs: request.TimeSpentMs,
	})
	switch {
	case err == nil:
	case errors.Is(err, review.ErrInvalidConfidence):
		return replyBadRequest(c, err.Error())
	case errors.Is(err, review.ErrQuestionNotFound):
		return replyNotFound(c, "question not found")
	case errors.Is(err, store.ErrConcurrentUpdate):
		return replyConflict(c, "card was modified concurrently, retry the attempt")
	default:
		return replyInternal(c, err)
	}
	if reqCtx, ok := observability.FromContext(ctx); ok {
		reqCtx.Info("attempt recorded",
			slog.String("question", question.UID),
			slog.Bool("correct", request.IsCorrect),
			slog.String("newState", card.State))
	}
	return c.JSON(http.StatusOK, convertCard(card, question.UID))
}

// recalculateResponse reports how many cards the sweep touched.
type recalculateResponse struct {
	UpdatedCards int `json:"updatedCards"`
}

// RecalculateElapsed runs the elapsed-days maintenance sweep for one user.
func (s *APIV1Service) RecalculateElapsed(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := pathInt32(c, "user")
	if err != nil {
		return replyBadRequest(c, "invalid user id")
	}
	updated, err := s.Review.RecalculateElapsed(ctx, userID)
	if err != nil {
		return replyInternal(c, err)
	}
	return c.JSON(http.StatusOK, &recalculateResponse{UpdatedCards: updated})
}
