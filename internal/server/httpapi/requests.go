package httpapi

import (
	"fmt"
	"time"

	"github.com/avelkers/medrecord/internal/common"
	"github.com/avelkers/medrecord/internal/server/services"
)

const serviceDateLayout = "2006-01-02"

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *registerRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}
	return nil
}

// documentRequest is the body of both create and update. FileID is only
// honored on create; updates never relink a document.
type documentRequest struct {
	Title       string `json:"title"`
	ServiceDate string `json:"service_date"`
	Provider    string `json:"provider"`
	DocType     string `json:"doc_type"`
	Medication  string `json:"medication"`
	FileID      string `json:"file_id"`
}

// Attrs validates the shared fields once, centrally, and converts them into
// service-level attributes. Medication stays optional free text.
func (r *documentRequest) Attrs() (services.DocumentAttrs, error) {
	if r.Title == "" || r.ServiceDate == "" || r.Provider == "" || r.DocType == "" {
		return services.DocumentAttrs{}, fmt.Errorf("%w: required fields missing", common.ErrorValidation)
	}

	serviceDate, err := time.Parse(serviceDateLayout, r.ServiceDate)
	if err != nil {
		return services.DocumentAttrs{}, fmt.Errorf("%w: invalid service date", common.ErrorValidation)
	}

	return services.DocumentAttrs{
		Title:       r.Title,
		ServiceDate: serviceDate,
		Provider:    r.Provider,
		DocType:     r.DocType,
		Medication:  r.Medication,
	}, nil
}
