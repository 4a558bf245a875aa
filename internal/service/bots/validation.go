package bots

import (
	"regexp"
	"strings"

	"botcraft/internal/config"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func validateCreateRequest(req *services.CreateBotRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Name,
			validation.By(notBlank("bot name")),
			validation.RuneLength(1, config.MaxBotNameLength),
		),
	)
	if err != nil {
		return err
	}

	hasPDF := req.PDF != nil && len(req.PDF.Data) > 0
	hasURL := strings.TrimSpace(req.URL) != ""
	switch {
	case hasPDF && hasURL:
		return validation.NewError("source", "provide either a PDF file or a URL, not both")
	case !hasPDF && !hasURL:
		return validation.NewError("source", "please provide either a PDF file or a URL")
	}
	return nil
}

func validateCustomization(c models.Customization) error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PrimaryColor,
			validation.Required,
			validation.Match(hexColor).Error("must be a hex color like #007bff"),
		),
		validation.Field(&c.HeaderText,
			validation.By(notBlank("header text")),
			validation.RuneLength(1, config.MaxHeaderTextLength),
		),
		validation.Field(&c.InitialMessage,
			validation.By(notBlank("initial message")),
			validation.RuneLength(1, config.MaxInitialMessageLength),
		),
	)
}

func validateQuestion(question string) error {
	return validation.Validate(question,
		validation.By(notBlank("question")),
		validation.RuneLength(1, config.MaxQuestionLength),
	)
}

func notBlank(field string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return validation.NewError("validation_required", field+" is required")
		}
		return nil
	}
}
