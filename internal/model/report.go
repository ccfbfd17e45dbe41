package model

type ReportStatus string

const (
	ReportEmpty      ReportStatus = "empty"
	ReportIncomplete ReportStatus = "incomplete"
	ReportSubmitted  ReportStatus = "submitted"
)

type Report struct {
	ID                  int64        `json:"id"`
	OccurrenceID        int64        `json:"occurrence_id"`
	Status              ReportStatus `json:"status"`
	SafeguardingConcern bool         `json:"safeguarding_concern"`
}

type QuestionType string

const (
	QuestionText    QuestionType = "text"
	QuestionBoolean QuestionType = "boolean"
	QuestionNumber  QuestionType = "number"
	QuestionOption  QuestionType = "option"
)

type ReportQuestion struct {
	ID      int64        `json:"id" yaml:"id"`
	Title   string       `json:"title" yaml:"title"`
	Type    QuestionType `json:"type" yaml:"type"`
	Options []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Hidden  bool         `json:"hidden" yaml:"hidden"`
	Order   int          `json:"order" yaml:"order"`
}

// ReportAnswer значение хранится строкой, тип задаёт вопрос
type ReportAnswer struct {
	ReportID   int64  `json:"report_id"`
	QuestionID int64  `json:"question_id"`
	Value      string `json:"value"`
}

type AnswerInput struct {
	QuestionID int64 `json:"question_id" validate:"required,gt=0"`
	// Value nil очищает ответ
	Value *string `json:"value"`
}

// ReportUpdate статус для одного или нескольких отчётов; ответы только для одного
type ReportUpdate struct {
	ReportIDs []int64       `json:"report_ids" validate:"required,min=1,dive,gt=0"`
	Status    *ReportStatus `json:"status,omitempty" validate:"omitempty,oneof=empty incomplete submitted"`
	Answers   []AnswerInput `json:"answers,omitempty" validate:"dive"`
}
