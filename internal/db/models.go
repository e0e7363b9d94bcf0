package db

// Dispatch is one webhook gateway attempt.
type Dispatch struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	TaskID     string `gorm:"column:task_id;not null;default:'';index"`
	ResponseID string `gorm:"column:response_id;not null;default:''"`
	Kind       string `gorm:"column:kind;not null;default:''"`
	Outcome    string `gorm:"column:outcome;not null;default:''"`
	HTTPStatus int    `gorm:"column:http_status;not null;default:0"`
	ErrorText  string `gorm:"column:error_text;not null;default:''"`
	Warning    string `gorm:"column:warning;not null;default:''"`
	CreatedAt  int64  `gorm:"column:created_at;not null;default:0"`
}

func (Dispatch) TableName() string { return "dispatches" }
