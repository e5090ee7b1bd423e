package doctor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/cmd/doctor/internal/platform/directory"
)

// Directory answers clinic and department lookups. *directory.Client
// satisfies it.
type Directory interface {
	LookupClinic(ctx context.Context, id uuid.UUID) (directory.ClinicInfo, error)
	DepartmentExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type ValidatorConfig struct {
	PhoneRegion   string
	MaxImageBytes int
}

const (
	defaultPhoneRegion   = "IN"
	defaultMaxImageBytes = 1 << 20
	minimumAge           = 18
	dateLayout           = "2006-01-02"
)

var namePattern = regexp.MustCompile(`^[A-Za-z]+(?: [A-Za-z]+)*$`)

// Validator runs the doctor checks in a fixed order and stops at the first
// failure: name, date of birth, email, gender, phone, profile picture, the
// remaining field limits, department, clinic, then the address country.
type Validator struct {
	v      *validator.Validate
	dir    Directory
	region string
	maxImg int
	now    func() time.Time
}

func NewValidator(dir Directory, cfg ValidatorConfig) *Validator {
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = defaultPhoneRegion
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	val := &Validator{
		v:      validator.New(validator.WithRequiredStructEnabled()),
		dir:    dir,
		region: strings.ToUpper(cfg.PhoneRegion),
		maxImg: cfg.MaxImageBytes,
		now:    time.Now,
	}
	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	val.v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	return val
}

// Validate checks req and returns a doctor populated with the normalized
// values. Identity and audit fields are left for the caller.
func (val *Validator) Validate(ctx context.Context, req *Request) (*Doctor, error) {
	if err := val.name(req.FirstName); err != nil {
		return nil, invalid("first_name", err)
	}
	if err := val.name(req.LastName); err != nil {
		return nil, invalid("last_name", err)
	}
	dob, err := val.dateOfBirth(req.DateOfBirth)
	if err != nil {
		return nil, invalid("date_of_birth", err)
	}
	if err := val.v.Var(req.Email, "required,email,max=254"); err != nil {
		return nil, invalid("email", ErrInvalidEmail)
	}
	gender, err := parseGender(req.Gender)
	if err != nil {
		return nil, invalid("gender", err)
	}
	phone, err := val.phone(req.PhoneNo)
	if err != nil {
		return nil, invalid("phone_no", err)
	}
	if err := val.image(req.ProfilePicture); err != nil {
		return nil, invalid("profile_picture", err)
	}
	if err := val.fields(req); err != nil {
		return nil, err
	}
	if err := val.department(ctx, req.DepartmentID); err != nil {
		return nil, err
	}
	if err := val.clinic(ctx, req.ClinicID, req.Address.Country); err != nil {
		return nil, err
	}

	return &Doctor{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             strings.ToLower(req.Email),
		PhoneNo:           phone,
		Specialization:    req.Specialization,
		ProfilePicture:    req.ProfilePicture,
		Biography:         req.Biography,
		ExperienceInYears: req.ExperienceInYears,
		DateOfBirth:       dob,
		Gender:            gender,
		Qualification:     req.Qualification,
		Active:            req.IsActive(),
		DepartmentID:      req.DepartmentID,
		ClinicID:          req.ClinicID,
		Address: Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			Country: req.Address.Country,
			ZipCode: req.Address.ZipCode,
		},
	}, nil
}

func (val *Validator) name(s string) error {
	if err := val.v.Var(s, "required,min=2,max=50,personname"); err != nil {
		return ErrInvalidName
	}
	return nil
}

func (val *Validator) dateOfBirth(s string) (time.Time, error) {
	dob, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDOB
	}
	now := val.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if dob.After(today) || dob.AddDate(minimumAge, 0, 0).After(today) {
		return time.Time{}, ErrInvalidDOB
	}
	return dob, nil
}

func parseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, nil
	}
	return "", ErrInvalidGender
}

// phone accepts numbers in international form or local to the configured
// region and returns them in E.164.
func (val *Validator) phone(s string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(s), val.region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (val *Validator) image(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	switch http.DetectContentType(b) {
	case "image/jpeg", "image/png":
	default:
		return ErrInvalidImageType
	}
	if len(b) > val.maxImg {
		return ErrImageTooLarge
	}
	return nil
}

func (val *Validator) fields(req *Request) error {
	err := val.v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "Request.")
		return invalid(field, fmt.Errorf("%w: failed %q", ErrInvalidField, fe.Tag()))
	}
	return invalid("request", fmt.Errorf("%w: %v", ErrInvalidField, err))
}

func (val *Validator) department(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return invalid("department_id", ErrInvalidDepartment)
	}
	if val.dir == nil {
		return nil
	}
	ok, err := val.dir.DepartmentExists(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !ok {
		return invalid("department_id", ErrInvalidDepartment)
	}
	return nil
}

// clinic checks the clinic exists and that the doctor's address is in the
// clinic's country. A clinic with no recorded country skips the address check.
func (val *Validator) clinic(ctx context.Context, id uuid.UUID, country string) error {
	if id == uuid.Nil {
		return invalid("clinic_id", ErrInvalidClinic)
	}
	if val.dir == nil {
		return nil
	}
	info, err := val.dir.LookupClinic(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !info.Exists {
		return invalid("clinic_id", ErrInvalidClinic)
	}
	if info.Country != "" && !strings.EqualFold(strings.TrimSpace(info.Country), strings.TrimSpace(country)) {
		return invalid("address.country", ErrInvalidAddress)
	}
	return nil
}
