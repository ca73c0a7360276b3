package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"wp-quiz-service/internal/domain"
)

// QuestionLoader loads question banks from Postgres. Options are stored as a
// JSONB array per row.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, quizType domain.QuizType, difficulty domain.DifficultyLevel) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, question, COALESCE(code, ''), options, correct_answer, COALESCE(explanation, '')
		 FROM questions
		 WHERE quiz_type=$1 AND difficulty=$2
		 ORDER BY created_at, id`,
		string(quizType), string(difficulty))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var rawOptions []byte
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Code, &rawOptions, &q.CorrectOption, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
