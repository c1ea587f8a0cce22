package consent

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
)

const (
	MinAge = 18
	MaxAge = 120

	FieldFullName         = "full_name"
	FieldBirthDate        = "birth_date"
	FieldBirthPlace       = "birth_place"
	FieldResidenceAddress = "residence_address"
)

var nameCaser = cases.Title(language.Italian)

// Anagraphic is the identity data a member signs the consent document with.
type Anagraphic struct {
	FullName         string
	BirthDate        time.Time
	BirthPlace       string
	ResidenceAddress string
}

// NormalizeFullName collapses whitespace and title-cases each word.
func NormalizeFullName(s string) string {
	return nameCaser.String(strings.Join(strings.Fields(s), " "))
}

// ValidateFullName requires at least a first and a last name made of letters.
func ValidateFullName(s string) error {
	words := strings.Fields(s)
	if len(words) < 2 {
		return &FieldError{Field: FieldFullName, Reason: "first and last name are required"}
	}
	if len([]rune(strings.Join(words, " "))) > 120 {
		return &FieldError{Field: FieldFullName, Reason: "too long"}
	}
	for _, w := range words {
		if len([]rune(w)) < 2 {
			return &FieldError{Field: FieldFullName, Reason: "name too short"}
		}
		for _, r := range w {
			if !unicode.IsLetter(r) && r != '\'' && r != '-' && r != '.' {
				return &FieldError{Field: FieldFullName, Reason: "only letters are allowed"}
			}
		}
	}
	return nil
}

// ValidateBirthDate checks the age computed on today falls in [MinAge, MaxAge].
func ValidateBirthDate(birth, today time.Time) error {
	if birth.After(today) {
		return &FieldError{Field: FieldBirthDate, Reason: "date is in the future"}
	}
	age := biztime.YearsBetween(birth, today)
	if age < MinAge {
		return &FieldError{Field: FieldBirthDate, Reason: "you must be at least 18 years old"}
	}
	if age > MaxAge {
		return &FieldError{Field: FieldBirthDate, Reason: "age is not plausible"}
	}
	return nil
}

func ValidateBirthPlace(s string) error {
	if len([]rune(strings.TrimSpace(s))) < 2 {
		return &FieldError{Field: FieldBirthPlace, Reason: "birth place is too short"}
	}
	return nil
}

// ValidateResidenceAddress requires street, number and town in some form.
func ValidateResidenceAddress(s string) error {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 10 || len(strings.Fields(s)) < 3 {
		return &FieldError{Field: FieldResidenceAddress, Reason: "address is incomplete"}
	}
	return nil
}

// NewAnagraphic validates and normalizes every field.
func NewAnagraphic(fullName string, birthDate time.Time, birthPlace, address string, today time.Time) (Anagraphic, error) {
	if err := ValidateFullName(fullName); err != nil {
		return Anagraphic{}, err
	}
	if err := ValidateBirthDate(birthDate, today); err != nil {
		return Anagraphic{}, err
	}
	if err := ValidateBirthPlace(birthPlace); err != nil {
		return Anagraphic{}, err
	}
	if err := ValidateResidenceAddress(address); err != nil {
		return Anagraphic{}, err
	}
	return Anagraphic{
		FullName:         NormalizeFullName(fullName),
		BirthDate:        birthDate,
		BirthPlace:       strings.TrimSpace(birthPlace),
		ResidenceAddress: strings.Join(strings.Fields(address), " "),
	}, nil
}
