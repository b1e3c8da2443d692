package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/models"
)

// QuestionScore is the score block plus feedback written for one question.
type QuestionScore struct {
	TechnicalScore  int
	ClarityScore    int
	DepthScore      int
	ConfidenceScore int
	Feedback        string
	Strengths       []string
	Weaknesses      []string
}

// QuestionRepository writes question scores.
type QuestionRepository interface {
	SaveScore(ctx context.Context, id uint, score QuestionScore) (bool, error)
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

type questionRepository struct {
	db *gorm.DB
}

// SaveScore writes the whole score block in one statement, only while the
// question is still unscored. It reports whether the row was updated.
func (r *questionRepository) SaveScore(ctx context.Context, id uint, score QuestionScore) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ? AND technical_score IS NULL", id).
		Updates(map[string]interface{}{
			"technical_score":  score.TechnicalScore,
			"clarity_score":    score.ClarityScore,
			"depth_score":      score.DepthScore,
			"confidence_score": score.ConfidenceScore,
			"feedback":         score.Feedback,
			"strengths":        datatypes.NewJSONSlice(nonNil(score.Strengths)),
			"weaknesses":       datatypes.NewJSONSlice(nonNil(score.Weaknesses)),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
