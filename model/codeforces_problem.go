package model

type CodeforcesProblem struct {
	ID         string `gorm:"column:id;type:varchar(32);primaryKey"`
	ContestID  int    `gorm:"column:contest_id;type:int;not null;index:idx_cf_problem_contest"`
	ProblemKey string `gorm:"column:problem_key;type:varchar(16);not null"`
	Name       string `gorm:"column:name;type:varchar(255);default:''"`
	Url        string `gorm:"column:url;type:varchar(255);not null"`
	Difficulty int    `gorm:"column:difficulty;type:int;default:0"`
}

func (c *CodeforcesProblem) TableName() string {
	return "codeforces_problems"
}
