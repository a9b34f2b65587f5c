package repo

import (
	"gorm.io/gorm"

	"cfbattle/model"
)

type CodeforcesProblemRepo struct {
	DB *gorm.DB
}

func NewCodeforcesProblemRepo(db *gorm.DB) *CodeforcesProblemRepo {
	return &CodeforcesProblemRepo{DB: db}
}

func (r *CodeforcesProblemRepo) GetRandomByDifficulty(minDifficulty, maxDifficulty int, excludeIDs []string) (model.CodeforcesProblem, error) {
	var problem model.CodeforcesProblem
	query := r.DB.Where("difficulty >= ? AND difficulty <= ?", minDifficulty, maxDifficulty)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	err := query.Order("RAND()").First(&problem).Error
	return problem, err
}

func (r *CodeforcesProblemRepo) GetByID(id string) (model.CodeforcesProblem, error) {
	var problem model.CodeforcesProblem
	err := r.DB.Where("id = ?", id).First(&problem).Error
	return problem, err
}
