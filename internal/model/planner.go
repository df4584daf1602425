package model

// Goal is a planner goal owned by a single user.
type Goal struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Task is a checklist item under a goal.
type Task struct {
	ID          string `json:"id"`
	GoalID      string `json:"goalId"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`
}
