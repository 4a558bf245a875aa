package config

const (
	// MaxBotNameLength bounds bot names; they are shown in the dashboard
	// list and must fit VARCHAR(100).
	MaxBotNameLength = 100

	// MaxHeaderTextLength bounds the widget header.
	MaxHeaderTextLength = 60

	// MaxInitialMessageLength bounds the widget greeting.
	MaxInitialMessageLength = 200

	// MaxQuestionLength bounds a single public question.
	MaxQuestionLength = 2000

	// MaxUploadSize is the multipart limit for bot creation (PDF plus form
	// fields).
	MaxUploadSize = 21 << 20
)
