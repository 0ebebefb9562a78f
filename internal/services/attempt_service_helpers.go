package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/classhub/lms-service/internal/events"
	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/repositories"
)

// ===== RESUME AND EXPIRY =====

// resumeOrReject returns an in-progress attempt to its owner, finalizing it
// first if its deadline passed while the student was away. A student whose
// attempt is already submitted has used their slot and is no longer eligible
// to start.
func (s *attemptService) resumeOrReject(ctx context.Context, attempt *models.QuizAttempt, quiz *models.Quiz) (*AttemptResponse, error) {
	if attempt.IsSubmitted() {
		return nil, ErrNotEligible
	}

	if time.Now().After(s.attemptDeadline(attempt, quiz)) {
		if err := s.finalizeExpired(ctx, attempt, quiz); err != nil {
			return nil, err
		}
		return nil, ErrQuizWindowClosed
	}

	s.logger.Info("Resuming existing attempt",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"student_id", attempt.StudentID)

	return s.buildAttemptResponse(attempt, quiz, true), nil
}

// attemptDeadline is the earlier of the duration cutoff and the quiz window
// close.
func (s *attemptService) attemptDeadline(attempt *models.QuizAttempt, quiz *models.Quiz) time.Time {
	deadline := attempt.StartedAt.Add(time.Duration(quiz.Duration) * time.Minute)
	if quiz.EndTime.Before(deadline) {
		deadline = quiz.EndTime
	}
	return deadline
}

// finalizeExpired grades whatever answers were saved before the deadline and
// records the submission as of the deadline itself, not the moment of
// discovery. Expiry is detected lazily on the next access.
func (s *attemptService) finalizeExpired(ctx context.Context, attempt *models.QuizAttempt, quiz *models.Quiz) error {
	s.logger.Info("Finalizing expired attempt",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID)

	full, err := s.repo.Attempt().GetByIDWithAnswers(ctx, s.db, attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load attempt answers: %w", err)
	}

	if quiz.Questions == nil {
		quiz, err = s.repo.Quiz().GetByIDWithQuestions(ctx, s.db, quiz.ID)
		if err != nil {
			return fmt.Errorf("failed to get quiz: %w", err)
		}
	}

	if err := s.gradeAndFinalize(ctx, full, quiz, nil, s.attemptDeadline(attempt, quiz)); err != nil {
		return err
	}

	*attempt = *full
	s.publishSubmitted(ctx, attempt, quiz)
	return nil
}

// ===== GRADING =====

// gradeAndFinalize applies any inline answers, grades the full attempt and
// marks it submitted, all in one transaction. attempt must carry its stored
// answers and quiz its questions.
func (s *attemptService) gradeAndFinalize(ctx context.Context, attempt *models.QuizAttempt, quiz *models.Quiz, inline []SubmitAnswerRequest, submittedAt time.Time) error {
	questions := make([]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questions[i] = &quiz.Questions[i]
	}

	answerRows := make(map[uint]*models.AttemptAnswer, len(attempt.Answers))
	for i := range attempt.Answers {
		answerRows[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}
	for _, req := range inline {
		answerJSON, err := json.Marshal(req.Answer)
		if err != nil {
			return fmt.Errorf("failed to encode answer: %w", err)
		}
		if row, ok := answerRows[req.QuestionID]; ok {
			row.Answer = answerJSON
		} else {
			answerRows[req.QuestionID] = &models.AttemptAnswer{
				AttemptID:  attempt.ID,
				QuestionID: req.QuestionID,
				Answer:     answerJSON,
			}
		}
	}

	rawAnswers := make(map[uint]json.RawMessage, len(answerRows))
	for questionID, row := range answerRows {
		rawAnswers[questionID] = json.RawMessage(row.Answer)
	}

	score, graded, err := s.scorer.GradeAttempt(questions, rawAnswers)
	if err != nil {
		return fmt.Errorf("failed to grade attempt: %w", err)
	}

	return s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		var regraded []*models.AttemptAnswer
		for questionID, row := range answerRows {
			result, ok := graded[questionID]
			if !ok {
				// Answer for a question no longer on the quiz, leave as-is.
				continue
			}
			correct := result.IsCorrect
			row.IsCorrect = &correct
			row.MarksAwarded = result.MarksAwarded
			if row.ID == 0 {
				// A fresh inline answer may race a late recordAnswer on
				// the (attempt, question) key, so it goes through Upsert.
				if err := r.Answer().Upsert(ctx, nil, row); err != nil {
					return fmt.Errorf("failed to save graded answer: %w", err)
				}
				continue
			}
			regraded = append(regraded, row)
		}
		if err := r.Answer().UpdateBatch(ctx, nil, regraded); err != nil {
			return fmt.Errorf("failed to save graded answers: %w", err)
		}

		attempt.SubmittedAt = &submittedAt
		attempt.Score = score.Score
		attempt.Percentage = score.Percentage
		attempt.Completed = true

		if err := r.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		return nil
	})
}

// ===== EVENTS =====

// publishSubmitted reports the submission on the bus. Publish failures are
// logged, never surfaced: the grade is already durable.
func (s *attemptService) publishSubmitted(ctx context.Context, attempt *models.QuizAttempt, quiz *models.Quiz) {
	if s.eventPublisher == nil {
		return
	}

	event := events.NewEvent(events.EventAttemptSubmitted, map[string]interface{}{
		"attempt_id": attempt.ID,
		"quiz_id":    quiz.ID,
		"batch_id":   quiz.BatchID,
		"student_id": attempt.StudentID,
		"score":      attempt.Score,
		"percentage": attempt.Percentage,
	})

	if err := s.eventPublisher.Publish(ctx, events.TopicAttempts, event); err != nil {
		s.logger.Error("failed to publish attempt submitted event",
			"attempt_id", attempt.ID,
			"error", err)
	}
}

// ===== RESPONSE BUILDING =====

// questionOrderFor computes the delivery order for a fresh attempt. Without
// randomization the authored display order stands.
func (s *attemptService) questionOrderFor(quiz *models.Quiz, studentID string) []uint {
	questions := make([]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questions[i] = &quiz.Questions[i]
	}

	if quiz.RandomizeQuestions {
		return s.randomizer.ShuffleQuestions(studentID, quiz.ID, questions)
	}

	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

// buildAttemptResponse assembles the student-facing view: questions in the
// attempt's stored order, options in the student's order, correct answers
// stripped.
func (s *attemptService) buildAttemptResponse(attempt *models.QuizAttempt, quiz *models.Quiz, resumed bool) *AttemptResponse {
	resp := &AttemptResponse{
		QuizAttempt: attempt,
		CanSubmit:   !attempt.IsSubmitted(),
		Resumed:     resumed,
	}
	if attempt.IsSubmitted() {
		return resp
	}

	byID := make(map[uint]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		byID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	var order []uint
	if len(attempt.QuestionOrder) > 0 {
		if err := json.Unmarshal(attempt.QuestionOrder, &order); err != nil {
			s.logger.Error("failed to decode question order",
				"attempt_id", attempt.ID,
				"error", err)
			order = nil
		}
	}
	if order == nil {
		for i := range quiz.Questions {
			order = append(order, quiz.Questions[i].ID)
		}
	}

	for _, questionID := range order {
		question, ok := byID[questionID]
		if !ok {
			continue
		}
		resp.Questions = append(resp.Questions, QuestionForAttempt{
			ID:      question.ID,
			Type:    question.Type,
			Text:    question.Text,
			Marks:   question.Marks,
			Options: s.optionsFor(question, quiz, attempt.StudentID),
		})
	}

	return resp
}

// optionsFor extracts the selectable options without the answer key.
func (s *attemptService) optionsFor(question *models.Question, quiz *models.Quiz, studentID string) []models.ChoiceOption {
	var options []models.ChoiceOption

	switch question.Type {
	case models.SingleChoice:
		var content models.SingleChoiceContent
		if err := json.Unmarshal(question.Content, &content); err != nil {
			s.logger.Error("failed to decode question content",
				"question_id", question.ID,
				"error", err)
			return nil
		}
		options = content.Options
	case models.MultipleChoice:
		var content models.MultipleChoiceContent
		if err := json.Unmarshal(question.Content, &content); err != nil {
			s.logger.Error("failed to decode question content",
				"question_id", question.ID,
				"error", err)
			return nil
		}
		options = content.Options
	default:
		return nil
	}

	if quiz.RandomizeOptions {
		return s.randomizer.ShuffleOptions(studentID, question.ID, options)
	}
	return options
}

func (s *attemptService) buildResultResponse(attempt *models.QuizAttempt, quiz *models.Quiz, answerRows []*models.AttemptAnswer) *AttemptResultResponse {
	resp := &AttemptResultResponse{
		AttemptID:   attempt.ID,
		QuizID:      quiz.ID,
		StudentID:   attempt.StudentID,
		Score:       attempt.Score,
		TotalMarks:  quiz.TotalMarks,
		Percentage:  attempt.Percentage,
		SubmittedAt: attempt.SubmittedAt,
	}

	answers := make(map[uint]*models.AttemptAnswer, len(answerRows))
	for _, row := range answerRows {
		answers[row.QuestionID] = row
	}

	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		result := QuestionResult{
			QuestionID: question.ID,
			Text:       question.Text,
			Marks:      question.Marks,
		}
		if answer, ok := answers[question.ID]; ok {
			result.MarksAwarded = answer.MarksAwarded
			result.IsCorrect = answer.IsCorrect
			if len(answer.Answer) > 0 {
				var raw interface{}
				if err := json.Unmarshal(answer.Answer, &raw); err == nil {
					result.Answer = raw
				}
			}
		}
		resp.Questions = append(resp.Questions, result)
	}

	return resp
}

// ===== SHARED LOOKUPS =====

func (s *attemptService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// canViewAttempt covers the teacher and admin views of other students'
// attempts.
func (s *attemptService) canViewAttempt(ctx context.Context, quiz *models.Quiz, userID string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	switch user.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleTeacher:
		return quiz.CreatedBy == userID, nil
	}
	return false, nil
}
