package patient

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/pkg/pagination"
)

// FlexFloat is an optional float that accepts a JSON number or a numeric
// string. An empty string or null counts as absent.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = FlexFloat{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*f = FlexFloat{}
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", str)
		}
		*f = FlexFloat{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as a nullable pointer.
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// CreateInput is the payload for creating a patient record.
type CreateInput struct {
	UserID           string    `json:"userId" validate:"required,uuid"`
	MedicalRecord    *string   `json:"medicalRecord"`
	BloodType        *string   `json:"bloodType"`
	Allergies        *string   `json:"allergies"`
	ChronicDiseases  *string   `json:"chronicDiseases"`
	EmergencyContact *string   `json:"emergencyContact"`
	EmergencyPhone   *string   `json:"emergencyPhone" validate:"omitempty,e164"`
	Height           FlexFloat `json:"height" validate:"omitempty,min=50,max=250"`
	Weight           FlexFloat `json:"weight" validate:"omitempty,min=20,max=300"`
}

// UpdateInput is a partial patch: nil / absent fields are left untouched.
type UpdateInput struct {
	MedicalRecord    *string   `json:"medicalRecord"`
	BloodType        *string   `json:"bloodType"`
	Allergies        *string   `json:"allergies"`
	ChronicDiseases  *string   `json:"chronicDiseases"`
	EmergencyContact *string   `json:"emergencyContact"`
	EmergencyPhone   *string   `json:"emergencyPhone" validate:"omitempty,e164"`
	Height           FlexFloat `json:"height" validate:"omitempty,min=50,max=250"`
	Weight           FlexFloat `json:"weight" validate:"omitempty,min=20,max=300"`
}

// ValidationError aggregates every field violation of a payload.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// A *float64 keeps omitempty keyed on presence, not on the value, so
	// an explicit 0 still reaches the min/max checks.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if f, ok := field.Interface().(FlexFloat); ok {
			return f.Ptr()
		}
		return nil
	}, FlexFloat{})
	return v
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Validate normalizes free-text fields and checks every constraint,
// returning a *ValidationError carrying all violations at once.
func (in *CreateInput) Validate() error {
	in.UserID = strings.TrimSpace(in.UserID)
	in.MedicalRecord = trimPtr(in.MedicalRecord)
	in.Allergies = trimPtr(in.Allergies)
	in.ChronicDiseases = trimPtr(in.ChronicDiseases)
	in.EmergencyContact = trimPtr(in.EmergencyContact)
	return checkStruct(in)
}

// Validate normalizes free-text fields and checks every constraint.
func (in *UpdateInput) Validate() error {
	in.MedicalRecord = trimPtr(in.MedicalRecord)
	in.Allergies = trimPtr(in.Allergies)
	in.ChronicDiseases = trimPtr(in.ChronicDiseases)
	in.EmergencyContact = trimPtr(in.EmergencyContact)
	return checkStruct(in)
}

func checkStruct(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = messageFor(fe)
	}
	return &ValidationError{Fields: fields}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "userId":
		if fe.Tag() == "required" {
			return "userId is required"
		}
		return "userId must be a valid UUID"
	case "emergencyPhone":
		return "Please provide a valid phone number"
	case "height":
		if fe.Tag() == "min" {
			return "Height must be at least 50 cm"
		}
		return "Height must be at most 250 cm"
	case "weight":
		if fe.Tag() == "min" {
			return "Weight must be at least 20 kg"
		}
		return "Weight must be at most 300 kg"
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// Sort whitelists for ListQuery.
var (
	sortOrders = map[string]bool{"asc": true, "desc": true}
	sortFields = map[string]bool{"createdAt": true, "updatedAt": true, "height": true, "weight": true}
)

// ListQuery carries the admin list filters.
type ListQuery struct {
	Search    string
	BloodType string
	Page      int
	Limit     int
	SortBy    string // asc | desc
	SortField string // createdAt | updatedAt | height | weight
}

// ParseListQuery reads list filters from the request query string,
// applying defaults and rejecting unknown sort options.
func ParseListQuery(c echo.Context) (ListQuery, error) {
	pg := pagination.FromContext(c)
	q := ListQuery{
		Search:    strings.TrimSpace(c.QueryParam("search")),
		BloodType: c.QueryParam("bloodType"),
		Page:      pg.Page,
		Limit:     pg.Limit,
		SortBy:    c.QueryParam("sortBy"),
		SortField: c.QueryParam("sortField"),
	}
	if q.SortBy == "" {
		q.SortBy = "desc"
	}
	if q.SortField == "" {
		q.SortField = "createdAt"
	}

	fields := make(map[string]string)
	if !sortOrders[q.SortBy] {
		fields["sortBy"] = "sortBy must be one of: asc, desc"
	}
	if !sortFields[q.SortField] {
		fields["sortField"] = "sortField must be one of: createdAt, updatedAt, height, weight"
	}
	if len(fields) > 0 {
		return q, &ValidationError{Fields: fields}
	}
	return q, nil
}

// Offset returns the number of rows to skip for the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
