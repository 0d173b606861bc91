// internal/suite/cases.go
package suite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/formcheck/internal/pages"
)

// Case is one end-to-end test of the contact form.
type Case struct {
	ID                     string            `yaml:"id" json:"id"`
	Name                   string            `yaml:"name" json:"name"`
	Form                   pages.ContactForm `yaml:"form" json:"form"`
	ExpectValidationErrors bool              `yaml:"expect_validation_errors" json:"expect_validation_errors"`
	Skip                   bool              `yaml:"skip" json:"skip"`
}

// ErrUnknownCase is returned when a requested case id is not in the catalogue.
var ErrUnknownCase = errors.New("unknown test case")

// DefaultCases is the built-in catalogue.
func DefaultCases() []Case {
	valid := pages.ContactForm{
		Name:    "Formcheck Tester",
		Email:   "formcheck@example.com",
		Phone:   "+1 555 0100",
		Subject: "Automated contact form check",
		Message: "This is an automated test of the contact form. Please ignore.",
	}

	invalidEmail := valid
	invalidEmail.Email = "not-an-email"

	missingMessage := valid
	missingMessage.Message = ""

	return []Case{
		{ID: "CONTACT-01", Name: "valid submission is accepted", Form: valid},
		{ID: "CONTACT-02", Name: "empty form is rejected", ExpectValidationErrors: true},
		{ID: "CONTACT-03", Name: "invalid email is rejected", Form: invalidEmail, ExpectValidationErrors: true},
		{ID: "CONTACT-04", Name: "missing message is rejected", Form: missingMessage, ExpectValidationErrors: true},
	}
}

type caseFile struct {
	Cases []Case `yaml:"cases"`
}

// envRef matches ${VAR} references in fixture values.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// LoadCases reads a YAML fixture of the form `cases: [...]`. ${VAR} references
// in names and form values are expanded from the environment.
func LoadCases(path string) ([]Case, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand cases path %s: %w", path, err)
	}
	raw, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases file: %w", err)
	}
	return ParseCases(raw)
}

// ParseCases decodes and validates a YAML case fixture.
func ParseCases(raw []byte) ([]Case, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var file caseFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse cases file: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, errors.New("cases file defines no cases")
	}

	seen := make(map[string]bool, len(file.Cases))
	for i := range file.Cases {
		c := &file.Cases[i]
		if c.ID == "" {
			return nil, fmt.Errorf("case %d has no id", i+1)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate case id %q", c.ID)
		}
		seen[c.ID] = true

		c.Name = expandEnv(c.Name)
		if c.Name == "" {
			c.Name = c.ID
		}
		c.Form = pages.ContactForm{
			Name:    expandEnv(c.Form.Name),
			Email:   expandEnv(c.Form.Email),
			Phone:   expandEnv(c.Form.Phone),
			Subject: expandEnv(c.Form.Subject),
			Message: expandEnv(c.Form.Message),
		}
	}
	return file.Cases, nil
}

// Select keeps the cases whose ids are listed in only, in catalogue order.
// An empty only keeps everything.
func Select(cases []Case, only []string) ([]Case, error) {
	if len(only) == 0 {
		return cases, nil
	}

	byID := make(map[string]bool, len(cases))
	for _, c := range cases {
		byID[c.ID] = true
	}
	want := make(map[string]bool, len(only))
	for _, id := range only {
		if !byID[id] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCase, id)
		}
		want[id] = true
	}

	out := make([]Case, 0, len(want))
	for _, c := range cases {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}
