package dto

// GenerateQuestionsRequest asks the AI adapter for questions of a given
// type. The core stores only the template usage increment; questions pass
// through opaquely.
type GenerateQuestionsRequest struct {
	TemplateID string            `json:"template_id" validate:"required"`
	Type       string            `json:"type" validate:"required"`
	Count      int               `json:"count" validate:"required,gt=0,lte=50"`
	Params     map[string]string `json:"params,omitempty"`
}

// GeneratedQuestions is the opaque adapter output surfaced to the caller.
type GeneratedQuestions struct {
	TemplateID string   `json:"template_id"`
	Questions  []string `json:"questions"`
	Provider   string   `json:"provider"`
}

// ExtractedDocument is the normalised text pulled from an uploaded
// questionnaire, ready to seed a generation request.
type ExtractedDocument struct {
	Filename  string `json:"filename"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}
